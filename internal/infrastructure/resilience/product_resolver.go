package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/stock"
	"github.com/wms/backend/internal/infrastructure/config"
)

// ProductServiceResolver resolves product codes against the product service
// over HTTP. It implements stock.ProductResolver: an unknown code maps to
// shared.ErrNotFound, and any availability problem (open circuit, retry
// exhaustion, 5xx) maps to shared.ErrDownstreamUnavailable so handlers can
// fail soft and let redelivery try again later.
type ProductServiceResolver struct {
	baseURL string
	client  *Client
	logger  *zap.Logger
}

func NewProductServiceResolver(cfg config.ProductServiceConfig, breakerCfg config.BreakerConfig, logger *zap.Logger) *ProductServiceResolver {
	return &ProductServiceResolver{
		baseURL: cfg.BaseURL,
		client:  NewClient("product-service", cfg.Timeout, breakerCfg, logger),
		logger:  logger,
	}
}

func (r *ProductServiceResolver) ResolveCode(ctx context.Context, tenantID shared.TenantID, productCode string) (*stock.ProductRef, error) {
	endpoint := fmt.Sprintf("%s/api/v1/products/code/%s", r.baseURL, url.PathEscape(productCode))
	headers := map[string]string{"X-Tenant-ID": string(tenantID)}

	var ref stock.ProductRef
	err := r.client.GetJSON(ctx, endpoint, headers, &ref)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: product code %s", shared.ErrNotFound, productCode)
		}
		return nil, err
	}

	if ref.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: product code %s resolved to empty id", shared.ErrNotFound, productCode)
	}
	return &ref, nil
}

var _ stock.ProductResolver = (*ProductServiceResolver)(nil)
