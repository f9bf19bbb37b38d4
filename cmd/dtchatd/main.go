// Command dtchatd runs a single DTChat node: it loads its
// configuration, opens a listener socket per valid local endpoint,
// and relays inbound/outbound messages until interrupted.
package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DTN-MTP/DTChat/internal/config"
	"github.com/DTN-MTP/DTChat/internal/logging"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/ackproto"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/dispatcher"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/domain"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/events"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/outbound"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/routing"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/store"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/transport"
	"github.com/DTN-MTP/DTChat/pkg/dtchat/wire"
)

var log = logging.New("dtchatd")

// Exit codes: 0 on a clean shutdown, 1 if configuration could not be
// loaded, 2 if every configured listener failed to bind.
const (
	exitOK            = 0
	exitConfigFailure = 1
	exitNoListeners   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Errorf("loading configuration: %v", err)
		return exitConfigFailure
	}

	codec := selectCodec()
	d := dispatcher.New(cfg.LocalPeer, cfg.Peers, codec)
	d.SetAckDelay(ackproto.DelayFromEnv())

	queue := events.New()
	conversation := store.New(store.StandardOrdering{}, queue)
	d.AddObserver(conversation)

	var predictor *routing.Predictor
	if cfg.ContactPlan != "" {
		predictor, err = routing.NewPredictor(cfg.ContactPlan, time.Now())
		if err != nil {
			log.Warnf("contact plan could not be loaded, PBAT disabled: %v", err)
			predictor = nil
		}
	}

	sender := outbound.New(d, conversation, predictor, codec, queue)

	sockets := startListeners(cfg.LocalPeer, d)
	if len(sockets) == 0 {
		log.Errorf("no listener could be started on any configured endpoint")
		return exitNoListeners
	}
	defer closeAll(sockets)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go runStdinDriver(ctx, sender, cfg.Peers)

	log.Infof("dtchatd running as %s (%s) with %d listener(s)", cfg.LocalPeer.Name, cfg.LocalPeer.ID, len(sockets))
	<-ctx.Done()
	log.Infof("shutting down")
	return exitOK
}

// runStdinDriver is the minimal line-oriented front-end to the
// outbound sender: each input line of the form "<peer_id> <text>"
// composes and sends text to the named peer. It exits when stdin
// closes, or at the next input line once ctx is cancelled.
func runStdinDriver(ctx context.Context, sender *outbound.Sender, peers []domain.Peer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		peerID, text, ok := strings.Cut(line, " ")
		if !ok || text == "" {
			log.Warnf("ignoring malformed input line (expected \"<peer_id> <text>\"): %q", line)
			continue
		}
		receiver, ok := domain.FindPeer(peers, peerID)
		if !ok {
			log.Warnf("unknown peer %q, message not sent", peerID)
			continue
		}
		if err := sender.Send(ctx, text, receiver, true); err != nil {
			log.Warnf("send to %s failed: %v", peerID, err)
		}
	}
}

// selectCodec honors the dev-mode plain-text fallback when enabled.
func selectCodec() wire.Codec {
	if os.Getenv("DTCHAT_DEV_CODEC") != "" {
		return wire.NewDevCodec()
	}
	return wire.NewProtoCodec()
}

// startListeners opens and binds one socket per valid local endpoint,
// logging and skipping any that fail to bind rather than aborting the
// whole node over a single bad interface.
func startListeners(local domain.Peer, d *dispatcher.Dispatcher) []transport.Socket {
	var sockets []transport.Socket
	for _, ep := range local.ValidEndpoints() {
		sock, err := transport.New(ep)
		if err != nil {
			log.Warnf("opening socket on %s: %v", ep, err)
			continue
		}
		if err := sock.StartListener(d); err != nil {
			log.Warnf("starting listener on %s: %v", ep, err)
			_ = sock.Close()
			continue
		}
		log.Infof("listening on %s", ep)
		sockets = append(sockets, sock)
	}
	return sockets
}

func closeAll(sockets []transport.Socket) {
	for _, s := range sockets {
		if err := s.Close(); err != nil {
			log.Warnf("closing socket %s: %v", s.Endpoint(), err)
		}
	}
}
