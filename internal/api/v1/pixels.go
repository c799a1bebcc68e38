package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pixelboard/internal/domain"
)

const maxUserLen = 64

type GetBoardInput struct{}

type GetBoardOutput struct {
	Body *domain.Snapshot
}

// WritePixelInput takes the raw body so malformed requests map to 400
// rather than schema validation errors.
type WritePixelInput struct {
	RawBody []byte `contentType:"application/json"`
}

type WritePixelOutput struct{}

type GetUserInput struct {
	Body domain.UserStateRequest
}

type GetUserOutput struct {
	Body int64 `doc:"Seconds until the user may write again, 0 when allowed"`
}

type GetPixelInput struct {
	Body domain.PixelQuery
}

type GetPixelOutput struct {
	Body *domain.PixelInfo
}

// RegisterPixelRoutes mounts the board endpoints. Every accepted write
// starts a cooldown of the given length for its user.
func RegisterPixelRoutes(api huma.API, canvas Canvas, cooldowns Cooldowns, pub Publisher, cooldown time.Duration) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get the packed board snapshot",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, _ *GetBoardInput) (*GetBoardOutput, error) {
		snap, err := canvas.Snapshot(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read board", err)
		}
		return &GetBoardOutput{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "write-pixel",
		Method:        http.MethodPost,
		Path:          "/writepixel",
		Summary:       "Propose a single pixel write",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *WritePixelInput) (*WritePixelOutput, error) {
		var req domain.WriteRequest
		if err := json.Unmarshal(input.RawBody, &req); err != nil {
			return nil, huma.Error400BadRequest("malformed write request", err)
		}
		if err := validateWrite(req, canvas.Dimension()); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		left, err := cooldowns.Acquire(ctx, req.User, cooldown)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to check cooldown", err)
		}
		if left > 0 {
			return nil, huma.NewError(http.StatusNotAcceptable,
				fmt.Sprintf("cooldown active, %d seconds remaining", ceilSeconds(left)))
		}

		update, err := canvas.Write(ctx, req)
		if err != nil {
			// A rejected write does not spend the user's cooldown.
			if rerr := cooldowns.Release(ctx, req.User); rerr != nil {
				log.Error().Err(rerr).Str("user", req.User).Msg("release cooldown")
			}
			if errors.Is(err, domain.ErrOutOfBounds) || errors.Is(err, domain.ErrUnknownColorCode) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to write pixel", err)
		}

		payload, err := json.Marshal(update)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to encode update", err)
		}
		// The write is durable at this point; subscribers catch up on resync.
		if err := pub.Publish(ctx, payload); err != nil {
			log.Error().Err(err).Int("x", update.X).Int("y", update.Y).Msg("publish pixel update")
		}

		log.Debug().
			Int("x", update.X).
			Int("y", update.Y).
			Uint8("color", uint8(update.Color)).
			Str("user", req.User).
			Msg("pixel written")

		return &WritePixelOutput{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodPost,
		Path:        "/getuser",
		Summary:     "Get the remaining write cooldown of a user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *GetUserInput) (*GetUserOutput, error) {
		left, err := cooldowns.Remaining(ctx, input.Body.User)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read cooldown", err)
		}
		return &GetUserOutput{Body: ceilSeconds(left)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pixel",
		Method:      http.MethodPost,
		Path:        "/getpixel",
		Summary:     "Get the color and last writer of a pixel",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, input *GetPixelInput) (*GetPixelOutput, error) {
		info, err := canvas.Pixel(ctx, input.Body.X, input.Body.Y)
		if err != nil {
			if errors.Is(err, domain.ErrOutOfBounds) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to read pixel", err)
		}
		return &GetPixelOutput{Body: info}, nil
	})
}

func validateWrite(req domain.WriteRequest, dimension int) error {
	switch {
	case req.User == "":
		return errors.New("user is required")
	case len(req.User) > maxUserLen:
		return fmt.Errorf("user longer than %d bytes", maxUserLen)
	case req.X < 0 || req.X >= dimension || req.Y < 0 || req.Y >= dimension:
		return fmt.Errorf("pixel (%d,%d) outside %dx%d board", req.X, req.Y, dimension, dimension)
	case !domain.DefaultPalette().Valid(req.Col):
		return fmt.Errorf("unknown color %d", req.Col)
	}
	return nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
