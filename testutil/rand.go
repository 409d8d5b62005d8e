package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/types"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns empty string
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

// RandomParticipantRecord returns a record of a participant that already
// teleported at least once.
func RandomParticipantRecord(t *testing.T) types.ParticipantRecord {
	t.Helper()

	faker := gofakeit.New(0)
	spent, err := decimal.NewFromString(fmt.Sprintf("%.2f", faker.Float64Range(0, 10_000)))
	if err != nil {
		t.Fatalf("failed to build spent amount: %v", err)
	}

	return types.ParticipantRecord{
		ID:             faker.UUID(),
		LastTeleportAt: faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()).UTC().Truncate(time.Millisecond),
		TeleportCount:  int64(faker.IntRange(1, 500)),
		TotalSpent:     spent,
	}
}

// RandomLocation returns a location in world within radius blocks of the origin.
func RandomLocation(world string, radius int) types.Location {
	return types.Location{
		World: world,
		X:     float64(gofakeit.IntRange(-radius, radius)) + 0.5,
		Y:     float64(gofakeit.IntRange(64, 120)),
		Z:     float64(gofakeit.IntRange(-radius, radius)) + 0.5,
	}
}
