package protocol

import (
	"encoding/json"
	"fmt"
)

// ResponseError is the failure half of a socket response.
type ResponseError struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func (e *ResponseError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
	}
	return "server error: " + e.Message
}

// Response is the structured reply correlating to an operation, or the
// rebroadcast of another client's action when Broadcast is set.
type Response struct {
	Type      string
	Action    Action
	Broadcast bool
	Operation Options
	UserID    string
	Result    []map[string]interface{}
	Error     *ResponseError
}

// ParseResponse builds a Response from a raw inbound payload. Only the
// declared fields transfer (type, action, broadcast, operation, userId,
// result, error); anything else the payload carries is dropped. A payload
// without a type, or without exactly one of result/error, fails with
// ErrMalformedResponse.
func ParseResponse(payload map[string]interface{}) (*Response, error) {
	docType, _ := payload["type"].(string)
	if docType == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedResponse)
	}

	resp := &Response{Type: docType}
	if action, ok := payload["action"].(string); ok {
		resp.Action = Action(action)
	}
	if broadcast, ok := payload["broadcast"].(bool); ok {
		resp.Broadcast = broadcast
	}
	if userID, ok := payload["userId"].(string); ok {
		resp.UserID = userID
	}
	if op, ok := payload["operation"].(map[string]interface{}); ok {
		resp.Operation = parseOptions(op)
	}

	_, hasResult := payload["result"]
	_, hasError := payload["error"]
	switch {
	case hasResult && hasError:
		return nil, fmt.Errorf("%w: both result and error present", ErrMalformedResponse)
	case hasResult:
		result, err := parseResult(payload["result"])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp.Result = result
	case hasError:
		respErr, err := parseError(payload["error"])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp.Error = respErr
	default:
		return nil, fmt.Errorf("%w: neither result nor error present", ErrMalformedResponse)
	}
	return resp, nil
}

func parseOptions(raw map[string]interface{}) Options {
	var opts Options
	if render, ok := raw["render"].(bool); ok {
		opts.Render = render
	}
	if broadcast, ok := raw["broadcast"].(bool); ok {
		opts.Broadcast = broadcast
	}
	if label, ok := raw["renderContext"].(string); ok {
		opts.RenderContext = label
	}
	if parent, ok := raw["parent"].(string); ok {
		opts.Parent = parent
	}
	return opts
}

func parseResult(raw interface{}) ([]map[string]interface{}, error) {
	entries, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("result is not a list")
	}
	result := make([]map[string]interface{}, 0, len(entries))
	for i, entry := range entries {
		switch v := entry.(type) {
		case map[string]interface{}:
			result = append(result, v)
		case string:
			// delete results arrive as bare ids
			result = append(result, map[string]interface{}{"_id": v})
		default:
			return nil, fmt.Errorf("result[%d] is neither object nor id", i)
		}
	}
	return result, nil
}

func parseError(raw interface{}) (*ResponseError, error) {
	switch v := raw.(type) {
	case string:
		return &ResponseError{Message: v}, nil
	case map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var respErr ResponseError
		if err := json.Unmarshal(data, &respErr); err != nil {
			return nil, err
		}
		if respErr.Message == "" {
			return nil, fmt.Errorf("error object missing message")
		}
		return &respErr, nil
	default:
		return nil, fmt.Errorf("error is neither string nor object")
	}
}
