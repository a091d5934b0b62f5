package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/codit04/cypherd/internal/domain"
)

const (
	usdcDecimals = 6
	weiDecimals  = 18
)

// SkipConfig describes the route quoted by SkipClient.
type SkipConfig struct {
	URL             string
	APIKey          string
	Timeout         time.Duration
	SourceDenom     string
	SourceChainID   string
	DestDenom       string
	DestChainID     string
	QuoteAddress    string
	SlippagePercent string
}

// SkipClient quotes ETH for USD through a Skip-style route endpoint,
// treating USDC as USD.
type SkipClient struct {
	client *http.Client
	cfg    SkipConfig
	logger zerolog.Logger
}

// NewSkipClient creates a SkipClient. A nil client gets one bounded by cfg.Timeout.
func NewSkipClient(client *http.Client, cfg SkipConfig, logger zerolog.Logger) (*SkipClient, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, fmt.Errorf("oracle endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &SkipClient{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "skip_oracle").Logger(),
	}, nil
}

type routeRequest struct {
	SourceAssetDenom         string            `json:"source_asset_denom"`
	SourceAssetChainID       string            `json:"source_asset_chain_id"`
	DestAssetDenom           string            `json:"dest_asset_denom"`
	DestAssetChainID         string            `json:"dest_asset_chain_id"`
	AmountIn                 string            `json:"amount_in"`
	ChainIDsToAddresses      map[string]string `json:"chain_ids_to_addresses"`
	SlippageTolerancePercent string            `json:"slippage_tolerance_percent"`
	SmartSwapOptions         smartSwapOptions  `json:"smart_swap_options"`
	AllowUnsafe              bool              `json:"allow_unsafe"`
}

type smartSwapOptions struct {
	EvmSwaps bool `json:"evm_swaps"`
}

// QuoteEthForUsd returns the ETH amount the route yields for usd.
func (c *SkipClient) QuoteEthForUsd(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
	if !usd.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(routeRequest{
		SourceAssetDenom:         c.cfg.SourceDenom,
		SourceAssetChainID:       c.cfg.SourceChainID,
		DestAssetDenom:           c.cfg.DestDenom,
		DestAssetChainID:         c.cfg.DestChainID,
		AmountIn:                 usd.Shift(usdcDecimals).Truncate(0).String(),
		ChainIDsToAddresses:      map[string]string{c.cfg.DestChainID: c.cfg.QuoteAddress},
		SlippageTolerancePercent: c.cfg.SlippagePercent,
		SmartSwapOptions:         smartSwapOptions{EvmSwaps: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode route request: %w", domain.ErrUpstreamFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build route request: %w", domain.ErrUpstreamFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: route request: %w", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: read route response: %w", domain.ErrUpstreamFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Bytes("body", truncate(payload, 512)).Msg("route request rejected")
		return nil, fmt.Errorf("%w: route status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	wei, err := amountOut(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamFailure, err)
	}

	eth := wei.Shift(-weiDecimals)
	if !eth.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive quote %s", domain.ErrUpstreamFailure, eth)
	}

	return &domain.Quote{
		UsdAmount: usd,
		EthAmount: eth,
		Rate:      eth.DivRound(usd, weiDecimals),
	}, nil
}

// amountOut reads the wei amount from the top level, the route object,
// or the last operation, in that order.
func amountOut(payload []byte) (decimal.Decimal, error) {
	if !gjson.ValidBytes(payload) {
		return decimal.Zero, errors.New("route response is not valid JSON")
	}

	result := gjson.GetBytes(payload, "amount_out")
	if !result.Exists() {
		result = gjson.GetBytes(payload, "route.amount_out")
	}
	if !result.Exists() {
		ops := gjson.GetBytes(payload, "operations")
		if n := len(ops.Array()); n > 0 {
			result = ops.Array()[n-1].Get("amount_out")
		}
	}
	if !result.Exists() {
		return decimal.Zero, errors.New("route response has no amount_out")
	}

	wei, err := decimal.NewFromString(result.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount_out %q: %w", result.String(), err)
	}
	return wei, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
