package server

import (
	"context"
	"errors"
	"log/slog"

	"fitnessweb/internal/ads"
	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/models"
	"fitnessweb/internal/shop"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	msgShopFailed        = "Falha ao carregar os produtos."
	msgProductNotFound   = "Produto não encontrado ou indisponível."
	msgProductLoadFailed = "Falha ao carregar detalhes do produto."
)

// Shop lists the catalogue for the filter held in the query string.
// Category failures only empty the category select.
func (s *Server) Shop(c *fiber.Ctx) error {
	filter := shop.Parse(func(k string) string { return c.Query(k) })
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	userID := s.authState(c).UserID()

	var (
		categories []models.ProductCategory
		products   models.Page[models.Product]
	)
	var g errgroup.Group
	g.Go(func() error {
		list, err := caller.ListCategories(ctx)
		if err != nil {
			middleware.Logger.DebugContext(ctx, "shop categories unavailable", slog.String("error", err.Error()))
			return nil
		}
		categories = list
		return nil
	})
	g.Go(func() error {
		page, err := caller.ListProducts(ctx, filter.Query(s.config.ShopPerPage))
		products = page
		return err
	})
	err = g.Wait()

	data := fiber.Map{
		"Title":             "Loja",
		"Filter":            filter,
		"Categories":        categories,
		"FeaturedToggleURL": filter.ToggleFeatured().URL(),
		"Pager":             shop.Pager{},
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		middleware.Logger.WarnContext(ctx, "shop products failed", slog.String("error", err.Error()))
		data["Error"] = apiclient.MessageOr(err, msgShopFailed)
	} else {
		data["Products"] = products.Items
		data["Count"] = products.Total
		data["Pager"] = shop.NewPager(filter, products)
	}

	data["AdTop"] = s.ads.Banner(ctx, caller, ads.ShopTop, userID)
	data["AdSidebar"] = s.ads.Banner(ctx, caller, ads.ShopSidebar, userID)
	data["AdBottom"] = s.ads.Banner(ctx, caller, ads.ShopBottom, userID)
	s.persist(c, caller)

	return s.render(c, "shop/index", data)
}

// ShopFilter applies a submitted filter form and moves to page 1 of the
// resulting listing.
func (s *Server) ShopFilter(c *fiber.Ctx) error {
	submitted := shop.Parse(func(key string) string { return c.FormValue(key) })
	next := shop.Filter{Featured: submitted.Featured}.
		WithCategory(submitted.Category).
		WithSearch(submitted.Search)
	return c.Redirect(next.URL(), fiber.StatusSeeOther)
}

// ProductDetail shows one product by slug.
func (s *Server) ProductDetail(c *fiber.Ctx) error {
	caller, err := s.sessions.Caller(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	data := fiber.Map{"Title": "Produto"}
	product, err := caller.ProductBySlug(ctx, c.Params("slug"))
	switch {
	case err == nil:
		data["Title"] = product.Name
		data["Product"] = product
	case errors.Is(err, context.Canceled):
		return err
	case apiclient.IsNotFound(err):
		c.Status(fiber.StatusNotFound)
		data["Error"] = msgProductNotFound
	default:
		middleware.Logger.WarnContext(ctx, "product detail failed",
			slog.String("slug", c.Params("slug")),
			slog.String("error", err.Error()),
		)
		c.Status(fiber.StatusBadGateway)
		data["Error"] = msgProductLoadFailed
	}

	data["AdTop"] = s.ads.Banner(ctx, caller, ads.ProductDetailTop, s.authState(c).UserID())
	s.persist(c, caller)
	return s.render(c, "shop/product", data)
}

// AdClick records a banner click and sends the browser to the ad's target.
// Tracking is best effort; the redirect always happens for a valid link.
func (s *Server) AdClick(c *fiber.Ctx) error {
	signer := s.ads.Signer()
	if signer == nil {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	click, err := signer.Verify(c.Params("token"))
	if err != nil {
		middleware.Logger.DebugContext(c.UserContext(), "invalid ad click", slog.String("error", err.Error()))
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	caller, err := s.sessions.Caller(c)
	if err != nil {
		caller = s.api.For(nil)
	}
	if err := caller.TrackAdClick(c.UserContext(), click.AdID); err != nil {
		middleware.Logger.DebugContext(c.UserContext(), "ad click not tracked",
			slog.Uint64("ad_id", uint64(click.AdID)),
			slog.String("error", err.Error()),
		)
	}
	return c.Redirect(click.Target, fiber.StatusSeeOther)
}
