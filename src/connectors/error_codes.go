package connectors

import (
	"fmt"

	"pumpscanner/src/model"
)

// UpbitErrorNames maps the exchange's machine-readable error names to short
// descriptions.
var UpbitErrorNames = map[string]string{
	"invalid_query_payload":  "JWT payload malformed",
	"jwt_verification":       "JWT signature verification failed",
	"expired_access_key":     "access key expired",
	"nonce_used":             "nonce reused",
	"no_authorization_ip":    "request IP not whitelisted",
	"out_of_scope":           "API key lacks required scope",
	"create_ask_error":       "sell order rejected",
	"create_bid_error":       "buy order rejected",
	"insufficient_funds_ask": "not enough balance to sell",
	"insufficient_funds_bid": "not enough balance to buy",
	"under_min_total_ask":    "sell order below minimum notional",
	"under_min_total_bid":    "buy order below minimum notional",
	"validation_error":       "request validation failed",
	"order_not_found":        "order not found",
	"market_does_not_exist":  "market does not exist",
	"too_many_requests":      "rate limit exceeded",
	"server_error":           "exchange internal error",
}

// GetErrorMsg returns a short description for an Upbit error name. Unknown
// names come back as-is so nothing is lost from logs.
func GetErrorMsg(name string) string {
	if msg, ok := UpbitErrorNames[name]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_UPBIT_ERROR_%s", name)
}

// APIError is a failed exchange call carrying the exchange's error name.
type APIError struct {
	HTTPStatus int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upbit api error %d %s: %s", e.HTTPStatus, e.Name, e.Message)
}

// Classify maps an exchange failure onto the execution error taxonomy.
func Classify(err error) string {
	apiErr, ok := err.(*APIError)
	if !ok {
		return model.ErrCodeOrderAPI
	}

	switch apiErr.Name {
	case "under_min_total_ask", "under_min_total_bid":
		return model.ErrCodeOrderMinNotional
	case "insufficient_funds_ask", "insufficient_funds_bid":
		return model.ErrCodeBalanceUnavailable
	default:
		return model.ErrCodeOrderAPI
	}
}
