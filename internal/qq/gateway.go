package qq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/guonaihong/gout"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// rawResponse is a completed HTTP exchange whose cookies have already been
// merged into the jar.
type rawResponse struct {
	StatusCode int
	URL        string
	Body       []byte
}

// get issues a GET against ep with positional URL params substituted.
func (c *Client) get(ctx context.Context, ep Endpoint, params ...string) (*rawResponse, error) {
	target := ep.Build(params...)
	header := gout.H{
		"User-Agent": userAgent,
		"Connection": "keep-alive",
	}
	if ep.Referer != "" {
		header["Referer"] = ep.Referer
	}
	c.logger.Debug("HTTP GET", zap.String("url", target))

	resp, err := gout.New(c.http).
		GET(target).
		WithContext(ctx).
		SetHeader(header).
		SetCookies(c.jar.Cookies()...).
		Response()
	return c.finish(target, resp, err)
}

// post issues a POST against ep. The payload is serialized to JSON and sent
// as the single form field "r"; the service does not accept a JSON body.
func (c *Client) post(ctx context.Context, ep Endpoint, payload any) (*rawResponse, error) {
	target := ep.Build()
	if payload == nil {
		payload = map[string]any{}
	}
	r, err := json.Marshal(payload)
	if err != nil {
		return nil, protocolError("encode request", "payload is not serializable", err)
	}
	header := gout.H{
		"User-Agent":   userAgent,
		"Referer":      ep.Referer,
		"Origin":       ep.Origin,
		"Connection":   "keep-alive",
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "*/*",
	}
	c.logger.Debug("HTTP POST", zap.String("url", target), zap.ByteString("r", r))

	resp, err := gout.New(c.http).
		POST(target).
		WithContext(ctx).
		SetHeader(header).
		SetCookies(c.jar.Cookies()...).
		SetWWWForm(gout.H{"r": string(r)}).
		Response()
	return c.finish(target, resp, err)
}

func (c *Client) finish(target string, resp *http.Response, err error) (*rawResponse, error) {
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.jar.Merge(resp.Cookies())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, URL: target, Err: err}
	}
	return &rawResponse{StatusCode: resp.StatusCode, URL: target, Body: body}, nil
}

// unwrap validates the API envelope and returns the raw "result" value.
// Retcode 103 is passed to the warning hook and otherwise treated as success.
// When requireResult is false a missing result yields nil, nil.
func (c *Client) unwrap(op string, raw *rawResponse, requireResult bool) ([]byte, error) {
	if raw.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: raw.StatusCode, URL: raw.URL}
	}
	if !gjson.ValidBytes(raw.Body) {
		return nil, protocolError(op, "response is not valid JSON", nil)
	}
	retcode := gjson.GetBytes(raw.Body, "retcode")
	if !retcode.Exists() || retcode.Type != gjson.Number {
		return nil, protocolError(op, "retcode missing", nil)
	}

	switch code := int(retcode.Int()); {
	case code == CodeLoggedInElsewhere:
		c.warn(&ApiError{Code: code, Op: op})
	case code != 0:
		return nil, &ApiError{Code: code, Op: op}
	}

	result := gjson.GetBytes(raw.Body, "result")
	if !result.Exists() {
		if requireResult {
			return nil, protocolError(op, "result missing", nil)
		}
		return nil, nil
	}
	return []byte(result.Raw), nil
}

// decode unwraps raw and decodes the required result into v.
func (c *Client) decode(op string, raw *rawResponse, v any) error {
	result, err := c.unwrap(op, raw, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, v); err != nil {
		return protocolError(op, "unexpected result shape", err)
	}
	return nil
}

// checkSendResult accepts either "retcode" or "errCode" as the status field.
func checkSendResult(op string, raw *rawResponse) error {
	if raw.StatusCode != http.StatusOK {
		return &TransportError{StatusCode: raw.StatusCode, URL: raw.URL}
	}
	if !gjson.ValidBytes(raw.Body) {
		return protocolError(op, "response is not valid JSON", nil)
	}
	code := gjson.GetBytes(raw.Body, "retcode")
	if !code.Exists() {
		code = gjson.GetBytes(raw.Body, "errCode")
	}
	if !code.Exists() || code.Type != gjson.Number {
		return protocolError(op, "neither retcode nor errCode present", nil)
	}
	if code.Int() != 0 {
		return &ApiError{Code: int(code.Int()), Op: op}
	}
	return nil
}
