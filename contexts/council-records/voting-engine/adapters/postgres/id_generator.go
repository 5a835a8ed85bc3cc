package postgresadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func jsonMarshal(value any) ([]byte, error) {
	return json.Marshal(value)
}
