package command

import (
	"context"

	"github.com/marmos91/restd/pkg/store/position"
)

const (
	// MaxCoordinate bounds absolute positions on both axes.
	MaxCoordinate = 1_000_000

	// MaxStep bounds a single relative move on both axes.
	MaxStep = 1_000
)

type moveArgs struct {
	X *int `mapstructure:"x" validate:"required,gte=-1000000,lte=1000000"`
	Y *int `mapstructure:"y" validate:"required,gte=-1000000,lte=1000000"`
}

type stepArgs struct {
	DX int `mapstructure:"dx" validate:"gte=-1000,lte=1000"`
	DY int `mapstructure:"dy" validate:"gte=-1000,lte=1000"`
}

// handlePosition returns the user's position, creating the user at the
// default position when seen for the first time.
func handlePosition(ctx context.Context, d *Dispatcher, user string, args map[string]any) (position.Position, error) {
	if err := d.bindArgs(args, &struct{}{}); err != nil {
		return position.Position{}, err
	}
	return d.store.Update(ctx, user, func(pos position.Position, _ bool) (position.Position, error) {
		return pos, nil
	})
}

// handleMove sets the user's position to (x, y).
func handleMove(ctx context.Context, d *Dispatcher, user string, args map[string]any) (position.Position, error) {
	var in moveArgs
	if err := d.bindArgs(args, &in); err != nil {
		return position.Position{}, err
	}
	return d.store.Update(ctx, user, func(position.Position, bool) (position.Position, error) {
		return position.Position{X: *in.X, Y: *in.Y}, nil
	})
}

// handleStep moves the user by (dx, dy), clamped to the grid.
func handleStep(ctx context.Context, d *Dispatcher, user string, args map[string]any) (position.Position, error) {
	var in stepArgs
	if err := d.bindArgs(args, &in); err != nil {
		return position.Position{}, err
	}
	return d.store.Update(ctx, user, func(pos position.Position, _ bool) (position.Position, error) {
		return position.Position{
			X: clamp(pos.X+in.DX, -MaxCoordinate, MaxCoordinate),
			Y: clamp(pos.Y+in.DY, -MaxCoordinate, MaxCoordinate),
		}, nil
	})
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
