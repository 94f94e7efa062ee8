package archive

import (
	"context"
	"fmt"

	"github.com/Protocol-Lattice/research-agent/src/config"
)

// Open builds the sink described by cfg. Several backends produce a MultiSink.
func Open(ctx context.Context, cfg config.ArchiveConfig) (Sink, error) {
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	for _, backend := range cfg.Backends {
		var (
			s   Sink
			err error
		)
		switch backend {
		case "file":
			s = NewFileSink(cfg.Path)
		case "postgres":
			s, err = NewPostgresSink(ctx, cfg.PostgresDSN)
		case "mongo":
			s, err = NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		default:
			err = fmt.Errorf("unknown archive backend %q", backend)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open %s archive: %w", backend, err)
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return NewFileSink(cfg.Path), nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
