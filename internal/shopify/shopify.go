// Package shopify exports the shop's products into the treatment catalog format.
package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIVersion = "2024-10"
	userAgent         = "spigell/wisy catalog exporter"
	// Max value Shopify allows per page.
	perPage = "250"
)

var shopNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Config describes the shop to export from.
type Config struct {
	ShopName   string `mapstructure:"shop-name"`
	APIVersion string `mapstructure:"api-version"`
	// Token and TokenFile are resolved by the secrets loader.
	Token     string `mapstructure:"token" json:"-"`
	TokenFile string `mapstructure:"token-file"`
	Output    string `mapstructure:"output"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client for https://<shop>.myshopify.com/admin/api/<version>.
func New(shopName, apiVersion, token string, logger *zap.Logger) (*Client, error) {
	shopName = strings.ToLower(strings.TrimSpace(shopName))
	shopName = strings.TrimSuffix(shopName, ".myshopify.com")
	if !shopNamePattern.MatchString(shopName) {
		return nil, fmt.Errorf("invalid shop name %q", shopName)
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("shopify access token is required")
	}
	if strings.TrimSpace(apiVersion) == "" {
		apiVersion = DefaultAPIVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  strings.TrimSpace(token),
		logger: logger,
		APIURL: fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", shopName, apiVersion),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		UserAgent: userAgent,
	}, nil
}

// Products returns every product of the shop, following pagination links.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	next := c.APIURL + "/products.json?limit=" + perPage

	var products []Product
	for next != "" {
		page, link, err := c.getItems(ctx, next, "products")
		if err != nil {
			return nil, fmt.Errorf("get products: %w", err)
		}

		decoded, err := decodeProducts(page)
		if err != nil {
			return nil, err
		}
		products = append(products, decoded...)

		c.logger.Debug("got products page from Shopify",
			zap.Int("page_products", len(decoded)),
			zap.Int("total_products", len(products)),
		)

		next = nextPage(link)
	}

	return products, nil
}
