package bridge

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"bridgeconnector/internal/commerce"

	"github.com/goccy/go-json"
)

var errKeyRejected = errors.New("REQUEST_KEY_IS_NOT_VALID")

// verifyRequestKey asks the central key service whether this caller may issue
// refunds. Any response other than a clean 200 rejects the request.
func verifyRequestKey(keyCheckURL, key string) error {
	resp, err := fetchClient().PostForm(keyCheckURL, url.Values{"key": {key}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errKeyRejected
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(string(body)), "error") {
		return errKeyRejected
	}
	return nil
}

func actionCreateRefund(ctx *Context) (string, error) {
	decoded, err := ctx.Env.Decode(ctx.Params["data"])
	if err != nil {
		return "", err
	}

	var refund commerce.Refund
	if err := json.Unmarshal(decoded, &refund); err != nil {
		return "", err
	}

	if ctx.KeyCheckURL != "" {
		if err := verifyRequestKey(ctx.KeyCheckURL, ctx.Params["request_key"]); err != nil {
			return platformRespond(ctx, commerce.Response{ErrorCode: 1, Error: err.Error()})
		}
	}

	id, err := ctx.Store.CreateRefund(&refund, ctx.Gateway)
	if err != nil {
		return platformRespond(ctx, commerce.Response{ErrorCode: 1, Error: err.Error()})
	}
	return platformRespond(ctx, commerce.Response{Result: map[string]any{"refund_id": id}})
}
