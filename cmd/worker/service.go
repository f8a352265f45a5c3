package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	PubSub    pinger
	Consumers map[string]consumer
}

// Service checks the worker's dependencies and then runs every consumer
// until one of them stops or the context ends.
type Service struct {
	logg      *logger.Logger
	deps      []namedPinger
	consumers map[string]consumer
}

type namedPinger struct {
	name string
	p    pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}

	return &Service{
		logg: params.Logger,
		deps: []namedPinger{
			{name: "database", p: params.DB},
			{name: "redis", p: params.Redis},
			{name: "pubsub", p: params.PubSub},
		},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.p.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run returns the first consumer failure, or ctx.Err() once the worker is
// asked to stop. A consumer that returns nil counts as a failure.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		g.Go(func() error {
			err := c.Run(groupCtx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil {
				err = errors.New("consumer exited")
			}
			return fmt.Errorf("%s: %w", name, err)
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	}
	s.logg.Error(ctx, "consumer stopped unexpectedly", err)
	return err
}
