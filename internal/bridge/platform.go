package bridge

import (
	"github.com/goccy/go-json"

	"bridgeconnector/internal/commerce"
)

type platformRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// actionPlatform dispatches a named commerce mutation from the platform
// registry and wraps its outcome in the standard response shape.
func actionPlatform(ctx *Context) (string, error) {
	decoded, err := ctx.Env.Decode(ctx.Params["data"])
	if err != nil {
		return "", err
	}

	var req platformRequest
	if err := json.Unmarshal(decoded, &req); err != nil {
		return "", err
	}

	fn, ok := ctx.Platform.Get(req.Action)
	if !ok {
		return platformRespond(ctx, commerce.Response{
			ErrorCode: 2,
			Error:     "PLATFORM_ACTION_DOES_NOT_EXIST",
		})
	}

	result, err := fn(req.Params)
	if err != nil {
		return platformRespond(ctx, commerce.Response{ErrorCode: 1, Error: err.Error()})
	}
	return platformRespond(ctx, commerce.Response{Result: result})
}

func platformRespond(ctx *Context, resp commerce.Response) (string, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return ctx.Env.Encode(body)
}
