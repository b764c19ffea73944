package mongo

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestIsTransactionNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"illegal operation on standalone", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"operation not supported in transaction", fmt.Errorf("commit: %w", mongo.CommandError{Code: 263}), true},
		{"duplicate key", mongo.CommandError{Code: 11000}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransactionNotSupported(tt.err); got != tt.want {
				t.Errorf("isTransactionNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
