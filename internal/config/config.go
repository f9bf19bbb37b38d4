// Package config loads the node's YAML configuration file: peer
// roster, local identity, rooms and the contact plan. The ACK delay
// window is not part of this file; it is resolved separately from
// the environment by ackproto.DelayFromEnv.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/endpoint"
)

// DefaultConfigPath is used when DTCHAT_CONFIG is unset.
const DefaultConfigPath = "db/default.yaml"

// ConfigPathEnv overrides DefaultConfigPath when set.
const ConfigPathEnv = "DTCHAT_CONFIG"

var ErrInvalidConfig = errors.New("config: invalid configuration")

// rawEndpoint is the tagged YAML shape of an endpoint: {type, address}
// with type one of "Udp"/"Tcp"/"Bp".
type rawEndpoint struct {
	Type    string `yaml:"type"`
	Address string `yaml:"address"`
}

// rawPeer is the YAML shape of a peer entry.
type rawPeer struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Color     int           `yaml:"color"`
	Endpoints []rawEndpoint `yaml:"endpoints"`
}

type rawRoom struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type rawConfig struct {
	LocalPeer   rawPeer   `yaml:"local_peer"`
	PeerList    []rawPeer `yaml:"peer_list"`
	RoomList    []rawRoom `yaml:"room_list"`
	ContactPlan string    `yaml:"a_sabr"`
}

// Config is the resolved, validated node configuration.
type Config struct {
	LocalPeer   domain.Peer
	Peers       []domain.Peer
	Rooms       []domain.Room
	ContactPlan string // raw ION contact-plan text, empty if PBAT is unused
}

// Path resolves the configuration file path: DTCHAT_CONFIG if set,
// else DefaultConfigPath.
func Path() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	if raw.LocalPeer.ID == "" {
		return nil, errors.New("local_peer.id is required")
	}

	localPeer, err := peerFromRaw(raw.LocalPeer)
	if err != nil {
		return nil, fmt.Errorf("local_peer: %w", err)
	}

	peers := make([]domain.Peer, 0, len(raw.PeerList))
	for _, rp := range raw.PeerList {
		p, err := peerFromRaw(rp)
		if err != nil {
			return nil, fmt.Errorf("peer_list[%s]: %w", rp.ID, err)
		}
		peers = append(peers, p)
	}

	rooms := make([]domain.Room, 0, len(raw.RoomList))
	for _, rr := range raw.RoomList {
		rooms = append(rooms, domain.Room{ID: rr.ID, Name: rr.Name})
	}

	return &Config{
		LocalPeer:   localPeer,
		Peers:       peers,
		Rooms:       rooms,
		ContactPlan: raw.ContactPlan,
	}, nil
}

func peerFromRaw(rp rawPeer) (domain.Peer, error) {
	if rp.ID == "" {
		return domain.Peer{}, errors.New("id is required")
	}
	endpoints := make([]endpoint.Endpoint, 0, len(rp.Endpoints))
	for _, re := range rp.Endpoints {
		ep, err := endpoint.Parse(re.Type + "://" + re.Address)
		if err != nil {
			return domain.Peer{}, fmt.Errorf("endpoint {type: %q, address: %q}: %w", re.Type, re.Address, err)
		}
		endpoints = append(endpoints, ep)
	}
	return domain.Peer{ID: rp.ID, Name: rp.Name, Color: rp.Color, Endpoints: endpoints}, nil
}
