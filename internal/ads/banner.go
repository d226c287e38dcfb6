// Package ads loads the advertisement banner of a placement area and signs
// the click-through links shown on it.
package ads

import (
	"context"
	"html/template"
	"log/slog"
	"net/url"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/featureflags"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/observability"
)

// Placement areas requested by the pages.
const (
	DashboardTop     = "dashboard_top"
	DashboardBottom  = "dashboard_bottom"
	ShopTop          = "shop_top"
	ShopSidebar      = "shop_sidebar"
	ShopBottom       = "shop_bottom"
	ProductDetailTop = "product_detail_top"
)

// ClickPath prefixes the click-through route.
const ClickPath = "/ads/click/"

// Banner is one advertisement ready to render.
type Banner struct {
	Ad       models.Advertisement
	ClickURL string
	// Content is admin-authored HTML and is rendered unescaped.
	Content template.HTML
}

// Loader fetches banners. A nil Loader shows nothing.
type Loader struct {
	flags  *featureflags.Manager
	signer *Signer
}

// NewLoader returns a Loader gated by the ads flag.
func NewLoader(flags *featureflags.Manager, signer *Signer) *Loader {
	return &Loader{flags: flags, signer: signer}
}

// Banner returns the first active advertisement of placement, or nil when
// the flag is off, the area is empty or the lookup fails. Errors are logged
// at debug and never reach the page.
func (l *Loader) Banner(ctx context.Context, caller *apiclient.Caller, placement string, userID uint) *Banner {
	if l == nil || caller == nil {
		return nil
	}
	if !l.flags.Enabled(featureflags.Ads, userID) {
		observability.AdBanners.WithLabelValues(placement, "disabled").Inc()
		return nil
	}

	list, err := caller.AdvertisementsFor(ctx, placement)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "advertisement lookup failed",
			slog.String("placement", placement),
			slog.String("error", err.Error()),
		)
		observability.AdBanners.WithLabelValues(placement, "error").Inc()
		return nil
	}
	if len(list) == 0 {
		observability.AdBanners.WithLabelValues(placement, "empty").Inc()
		return nil
	}

	ad := list[0]
	b := &Banner{Ad: ad, Content: template.HTML(ad.Content)}
	if ad.TargetURL != "" && l.signer != nil {
		token, err := l.signer.Sign(ad.ID, ad.TargetURL)
		if err != nil {
			middleware.Logger.DebugContext(ctx, "sign ad click token failed",
				slog.Uint64("ad_id", uint64(ad.ID)),
				slog.String("error", err.Error()),
			)
		} else {
			b.ClickURL = ClickPath + url.PathEscape(token)
		}
	}
	observability.AdBanners.WithLabelValues(placement, "shown").Inc()
	return b
}

// Signer exposes the click token signer to the click handler.
func (l *Loader) Signer() *Signer {
	if l == nil {
		return nil
	}
	return l.signer
}
