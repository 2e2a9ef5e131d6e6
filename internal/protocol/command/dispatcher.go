// Package command turns framed HTTP requests into position commands.
//
// A request without a body reads the caller's position. A request with a
// body carries a flat JSON envelope:
//
//	{"command": "move", "userName": "alice", "x": 3, "y": 4}
//
// command selects the handler, userName selects the user (created on first
// use) and every other key is an argument of the command.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/internal/protocol/http1"
	"github.com/marmos91/restd/pkg/store/position"
	"github.com/mitchellh/mapstructure"
)

// Result is a successful command outcome.
type Result struct {
	Status int
	Body   []byte
}

// envelope is the decoded request body.
type envelope struct {
	Command  string         `mapstructure:"command" validate:"required,max=32"`
	UserName string         `mapstructure:"userName" validate:"omitempty,max=64,printascii"`
	Args     map[string]any `mapstructure:",remain"`
}

// handlerFunc executes one command for user with its raw arguments.
type handlerFunc func(ctx context.Context, d *Dispatcher, user string, args map[string]any) (position.Position, error)

// Dispatcher routes complete requests to command handlers.
//
// It is safe for concurrent use; all per-user state lives in the store.
type Dispatcher struct {
	store    position.Store
	validate *validator.Validate
	handlers map[string]handlerFunc
}

// NewDispatcher returns a Dispatcher backed by store.
func NewDispatcher(store position.Store) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		handlers: make(map[string]handlerFunc),
	}
	d.handlers["position"] = handlePosition
	d.handlers["move"] = handleMove
	d.handlers["step"] = handleStep
	return d
}

// Dispatch executes req and returns the response payload.
//
// Client mistakes are returned as *Error. Any other error means the server
// failed and is answered with 500 by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req *http1.Request) (*Result, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return nil, newError(http.StatusMethodNotAllowed, nil, "method %s not allowed", req.Method)
	}

	if len(req.Body) == 0 {
		user, err := userFromTarget(req.Target)
		if err != nil {
			return nil, err
		}
		pos, err := position.GetOrDefault(ctx, d.store, user)
		if err != nil {
			return nil, fmt.Errorf("read position of %q: %w", user, err)
		}
		return positionResult(pos), nil
	}

	if mt := req.MediaType(); mt != http1.ContentTypeJSON {
		return nil, newError(http.StatusUnsupportedMediaType, nil, "content type %q not supported, expected %s", mt, http1.ContentTypeJSON)
	}

	env, err := d.decodeEnvelope(req.Body)
	if err != nil {
		return nil, err
	}

	handler, ok := d.handlers[env.Command]
	if !ok {
		return nil, badRequest(nil, "unknown command %q", env.Command)
	}

	user := env.UserName
	if user == "" {
		user = position.AnonymousUser
	}

	logger.Debug("Dispatching command=%s user=%s args=%d", env.Command, user, len(env.Args))

	pos, err := handler(ctx, d, user, env.Args)
	if err != nil {
		var cmdErr *Error
		if errors.As(err, &cmdErr) {
			return nil, cmdErr
		}
		return nil, fmt.Errorf("command %s for %q: %w", env.Command, user, err)
	}
	return positionResult(pos), nil
}

func (d *Dispatcher) decodeEnvelope(body []byte) (*envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, badRequest(err, "invalid JSON body")
	}
	if dec.More() {
		return nil, badRequest(nil, "trailing data after JSON object")
	}

	var env envelope
	if err := decodeArgs(raw, &env, false); err != nil {
		return nil, badRequest(err, "invalid command envelope")
	}
	if err := d.validate.Struct(&env); err != nil {
		return nil, badRequest(err, "invalid command envelope")
	}
	return &env, nil
}

// bindArgs decodes raw command arguments into out and validates them.
// Unknown arguments are rejected.
func (d *Dispatcher) bindArgs(args map[string]any, out any) error {
	if err := decodeArgs(args, out, true); err != nil {
		return badRequest(err, "invalid arguments")
	}
	if err := d.validate.Struct(out); err != nil {
		return badRequest(err, "invalid arguments")
	}
	return nil
}

func decodeArgs(input any, out any, errorUnused bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: errorUnused,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

func userFromTarget(target string) (string, error) {
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return "", badRequest(err, "invalid request target %q", target)
	}
	user := u.Query().Get("userName")
	if user == "" {
		return position.AnonymousUser, nil
	}
	if err := position.ValidateUser(user); err != nil {
		return "", badRequest(err, "invalid userName")
	}
	return user, nil
}

// FormatPosition renders a position payload.
func FormatPosition(pos position.Position) []byte {
	return fmt.Appendf(nil, `{"tag": "position", "x": %d, "y": %d}`, pos.X, pos.Y)
}

func positionResult(pos position.Position) *Result {
	return &Result{Status: http.StatusOK, Body: FormatPosition(pos)}
}
