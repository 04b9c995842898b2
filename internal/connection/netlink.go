package connection

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

// LinkSource watches kernel link updates and feeds the monitor passive
// online/offline signals, the Linux counterpart of the browser's
// navigator events.
type LinkSource struct {
	logger   *zap.Logger
	linkChan chan netlink.LinkUpdate

	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	cancel  context.CancelFunc
}

func NewLinkSource(logger *zap.Logger) *LinkSource {
	return &LinkSource{
		logger:   logger,
		linkChan: make(chan netlink.LinkUpdate, 100),
	}
}

// Start subscribes to link updates and pushes a fresh signal to apply on
// every change. ListExisting seeds the first signal from current state.
func (s *LinkSource) Start(ctx context.Context, apply func(Signal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("link source already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := netlink.LinkSubscribeWithOptions(s.linkChan, ctx.Done(), netlink.LinkSubscribeOptions{
		ListExisting: true,
		ErrorCallback: func(err error) {
			if err != nil {
				s.logger.Warn("link subscribe error", zap.Error(err))
			}
		},
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to link updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(ctx, apply)

	s.running = true
	s.logger.Info("Link signal source started...")
	return nil
}

func (s *LinkSource) processEvents(ctx context.Context, apply func(Signal)) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-s.linkChan:
			s.logger.Debug("link change detected", zap.String("name", upd.Link.Attrs().Name))
			sig, err := s.snapshotSignal()
			if err != nil {
				s.logger.Warn("link list failed", zap.Error(err))
				continue
			}
			apply(sig)
		}
	}
}

// snapshotSignal derives reachability from the full link list rather than a
// single update: one interface going down does not mean offline while
// another carrier is up.
func (s *LinkSource) snapshotSignal() (Signal, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return Signal{}, err
	}

	online := false
	ctype := model.ConnectionUnknown
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		if attrs.OperState != netlink.OperUp {
			continue
		}
		online = true
		if t := classifyLink(attrs.Name); betterLinkType(t, ctype) {
			ctype = t
		}
	}

	o := online
	return Signal{Online: &o, ConnectionType: ctype}, nil
}

func classifyLink(name string) model.ConnectionType {
	switch {
	case strings.HasPrefix(name, "wl"):
		return model.ConnectionWifi
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return model.ConnectionEthernet
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"):
		return model.ConnectionCellular
	default:
		return model.ConnectionUnknown
	}
}

// betterLinkType prefers ethernet over wifi over cellular when several
// carriers are up at once.
func betterLinkType(candidate, current model.ConnectionType) bool {
	rank := func(t model.ConnectionType) int {
		switch t {
		case model.ConnectionEthernet:
			return 3
		case model.ConnectionWifi:
			return 2
		case model.ConnectionCellular:
			return 1
		default:
			return 0
		}
	}
	return rank(candidate) > rank(current)
}

func (s *LinkSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("Link signal source stopped")
	return nil
}
