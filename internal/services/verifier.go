package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/models"
)

// Verifier checks that message was signed by wallet no longer than maxAge ago.
// A nil return means the request may proceed.
type Verifier interface {
	Verify(ctx context.Context, message, signature, wallet string, maxAge time.Duration) error
}

var timestampField = regexp.MustCompile(`timestamp:\s*(\d{10,16})`)

// EthVerifier recovers EIP-191 personal_sign signatures. The signed message
// must carry a "timestamp:<unix ms>" field used for freshness.
type EthVerifier struct {
	now func() time.Time
}

func NewEthVerifier() *EthVerifier {
	return &EthVerifier{now: time.Now}
}

func (v *EthVerifier) Verify(ctx context.Context, message, signature, wallet string, maxAge time.Duration) error {
	if message == "" || signature == "" {
		return fmt.Errorf("%w: signed message required", models.ErrUnauthorized)
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: malformed signature", models.ErrUnauthorized)
	}
	// Wallets produce V as 27/28; go-ethereum wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: signature recovery failed", models.ErrUnauthorized)
	}
	signer := strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())
	if signer != strings.ToLower(wallet) {
		return fmt.Errorf("%w: message was not signed by %s", models.ErrUnauthorized, wallet)
	}

	ts, err := messageTimestamp(message)
	if err != nil {
		return err
	}
	age := v.now().Sub(ts)
	if age > maxAge || age < -time.Minute {
		return fmt.Errorf("%w: signed message is stale", models.ErrUnauthorized)
	}

	logging.Debug(ctx).Str("wallet", wallet).Dur("age", age).Msg("signature verified")
	return nil
}

func messageTimestamp(message string) (time.Time, error) {
	m := timestampField.FindStringSubmatch(message)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: signed message has no timestamp", models.ErrUnauthorized)
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp", models.ErrUnauthorized)
	}
	return time.UnixMilli(ms), nil
}

// PermissiveVerifier accepts everything. Used outside production.
type PermissiveVerifier struct{}

func (PermissiveVerifier) Verify(ctx context.Context, message, signature, wallet string, maxAge time.Duration) error {
	logging.Debug(ctx).Str("wallet", wallet).Bool("signed", signature != "").Msg("signature check skipped")
	return nil
}
