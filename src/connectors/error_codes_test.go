package connectors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pumpscanner/src/model"
)

func TestGetErrorMsg(t *testing.T) {
	assert.Equal(t, "buy order below minimum notional", GetErrorMsg("under_min_total_bid"))
	assert.Equal(t, "UNKNOWN_UPBIT_ERROR_weird_name", GetErrorMsg("weird_name"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "under min total maps to order min notional",
			err:  &APIError{HTTPStatus: 400, Name: "under_min_total_bid", Message: "too small"},
			want: model.ErrCodeOrderMinNotional,
		},
		{
			name: "under min total ask maps the same",
			err:  &APIError{HTTPStatus: 400, Name: "under_min_total_ask", Message: "too small"},
			want: model.ErrCodeOrderMinNotional,
		},
		{
			name: "insufficient funds maps to balance unavailable",
			err:  &APIError{HTTPStatus: 400, Name: "insufficient_funds_bid", Message: "broke"},
			want: model.ErrCodeBalanceUnavailable,
		},
		{
			name: "other exchange errors map to order api",
			err:  &APIError{HTTPStatus: 500, Name: "server_error", Message: "oops"},
			want: model.ErrCodeOrderAPI,
		},
		{
			name: "plain errors map to order api",
			err:  errors.New("connection reset"),
			want: model.ErrCodeOrderAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{HTTPStatus: 429, Name: "too_many_requests", Message: "slow down"}
	assert.Equal(t, "upbit api error 429 too_many_requests: slow down", err.Error())
}
