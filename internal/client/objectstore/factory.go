package objectstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// Signer names accepted by New.
const (
	SignerLegacy = "legacy"
	SignerSDK    = "sdk"
)

// New selects a Gateway implementation by signer name.
func New(ctx context.Context, signer string, cfg Config, httpClient *http.Client, clk clock.Clock, log logging.Logger) (Gateway, error) {
	switch signer {
	case "", SignerLegacy:
		return NewLegacyGateway(cfg, httpClient, clk, log), nil
	case SignerSDK:
		return NewSDKGateway(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown object signer %q", signer)
	}
}
