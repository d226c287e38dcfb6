package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/crud"
	"fitnessweb/internal/models"
	"fitnessweb/internal/validation"
	"fitnessweb/internal/views"

	"github.com/gofiber/fiber/v2"
)

const (
	usersPath      = "/admin/users"
	adsPath        = "/admin/advertisements"
	productsPath   = "/admin/shop/products"
	categoriesPath = "/admin/shop/categories"
)

const msgEndBeforeStart = "A data de fim deve ser posterior à data de início."

var (
	errDeleteSelf          = errors.New("Não pode eliminar a sua própria conta.")
	errCategoryHasProducts = errors.New("Não é possível eliminar uma categoria com produtos associados.")
)

// registerAdminResources mounts the list+dialog screens of the back office.
func (s *Server) registerAdminResources(admin fiber.Router) {
	deps := crud.Deps{
		Sessions:  s.sessions,
		Snapshots: s.snapshots,
		Render:    s.render,
		PerPage:   s.config.AdminPerPage,
	}
	crud.NewController(s.userResource(), deps).Register(admin.Group(strings.TrimPrefix(usersPath, "/admin")))
	crud.NewController(s.advertisementResource(), deps).Register(admin.Group(strings.TrimPrefix(adsPath, "/admin")))
	crud.NewController(s.productResource(), deps).Register(admin.Group(strings.TrimPrefix(productsPath, "/admin")))
	crud.NewController(s.categoryResource(), deps).Register(admin.Group(strings.TrimPrefix(categoriesPath, "/admin")))
}

func (s *Server) userResource() *crud.Resource[models.User] {
	return &crud.Resource[models.User]{
		Name:      "users",
		Title:     "Gestão de Utilizadores",
		Singular:  "Utilizador",
		BasePath:  usersPath,
		Paginated: true,
		Columns: []crud.Column[models.User]{
			{Label: "ID", Value: func(u models.User) string { return idString(u.ID) }},
			{Label: "Username", Value: func(u models.User) string { return u.Username }},
			{Label: "Email", Value: func(u models.User) string { return u.Email }},
			{Label: "Admin?", Value: func(u models.User) string { return yesNo(u.IsAdmin) }},
			{Label: "Criado Em", Value: func(u models.User) string { return views.FormatDate(u.CreatedAt, s.loc) }},
		},
		RowActions: []crud.RowAction[models.User]{{
			Label: func(u models.User) string {
				if u.IsAdmin {
					return "Remover Admin"
				}
				return "Tornar Admin"
			},
			Path:   func(u models.User) string { return usersPath + "/" + idString(u.ID) + "/toggle-admin" },
			Hidden: func(actor uint, u models.User) bool { return actor == u.ID },
		}},
		Ops: crud.Ops[models.User]{
			List: func(ctx context.Context, caller *apiclient.Caller, page, perPage int) (models.Page[models.User], error) {
				return caller.ListUsers(ctx, page, perPage)
			},
			Delete: func(ctx context.Context, caller *apiclient.Caller, id uint) error {
				return caller.DeleteUser(ctx, id)
			},
		},
		Messages: crud.Messages{
			Deleted:      "Utilizador eliminado.",
			LoadFailed:   "Não foi possível carregar a lista de utilizadores.",
			DeleteFailed: "Não foi possível eliminar o utilizador.",
			NotFound:     "Utilizador não encontrado.",
		},
		ID:    func(u models.User) uint { return u.ID },
		Label: func(u models.User) string { return u.Username },
		CanDelete: func(actor uint, u models.User) error {
			if actor == u.ID {
				return errDeleteSelf
			}
			return nil
		},
	}
}

func (s *Server) advertisementResource() *crud.Resource[models.Advertisement] {
	return &crud.Resource[models.Advertisement]{
		Name:      "advertisements",
		Title:     "Gestão de Publicidade",
		Singular:  "Anúncio",
		BasePath:  adsPath,
		Paginated: true,
		Fields: []crud.Field{
			{Name: "title", Label: "Título", Kind: crud.KindText, Required: true},
			{Name: "content", Label: "Conteúdo (HTML/Texto)", Kind: crud.KindTextarea},
			{Name: "image_url", Label: "URL da Imagem", Kind: crud.KindURL},
			{Name: "target_url", Label: "URL de Destino", Kind: crud.KindURL},
			{Name: "placement_area", Label: "Área de Colocação", Kind: crud.KindText, Required: true,
				Placeholder: "sidebar_main, dashboard_top, shop_top..."},
			{Name: "start_date", Label: "Data de Início", Kind: crud.KindDatetime},
			{Name: "end_date", Label: "Data de Fim", Kind: crud.KindDatetime},
			{Name: "is_active", Label: "Ativo?", Kind: crud.KindCheckbox},
		},
		Columns: []crud.Column[models.Advertisement]{
			{Label: "ID", Value: func(a models.Advertisement) string { return idString(a.ID) }},
			{Label: "Título", Value: func(a models.Advertisement) string { return a.Title }},
			{Label: "Área", Value: func(a models.Advertisement) string { return a.PlacementArea }},
			{Label: "Ativo?", Value: func(a models.Advertisement) string { return yesNo(a.IsActive) }},
			{Label: "Datas", Value: func(a models.Advertisement) string {
				return dashIfEmpty(views.FormatDate(a.StartDate, s.loc)) + " - " + dashIfEmpty(views.FormatDate(a.EndDate, s.loc))
			}},
			{Label: "Cliques/Vistas", Value: func(a models.Advertisement) string {
				return strconv.Itoa(a.Clicks) + "/" + strconv.Itoa(a.Views)
			}},
		},
		Ops: crud.Ops[models.Advertisement]{
			List: func(ctx context.Context, caller *apiclient.Caller, page, perPage int) (models.Page[models.Advertisement], error) {
				return caller.ListAdvertisements(ctx, page, perPage)
			},
			Create: func(ctx context.Context, caller *apiclient.Caller, payload map[string]any) error {
				_, err := caller.CreateAdvertisement(ctx, payload)
				return err
			},
			Update: func(ctx context.Context, caller *apiclient.Caller, id uint, payload map[string]any) error {
				_, err := caller.UpdateAdvertisement(ctx, id, payload)
				return err
			},
			Delete: func(ctx context.Context, caller *apiclient.Caller, id uint) error {
				return caller.DeleteAdvertisement(ctx, id)
			},
		},
		Messages: crud.Messages{
			Created:      "Anúncio criado com sucesso!",
			Updated:      "Anúncio atualizado com sucesso!",
			Deleted:      "Anúncio eliminado.",
			LoadFailed:   "Não foi possível carregar os anúncios.",
			SaveFailed:   "Não foi possível guardar o anúncio.",
			DeleteFailed: "Não foi possível eliminar o anúncio.",
			NotFound:     "Anúncio não encontrado.",
		},
		ID:    func(a models.Advertisement) uint { return a.ID },
		Label: func(a models.Advertisement) string { return a.Title },
		ToForm: func(a models.Advertisement) validation.Values {
			return validation.Values{
				"title":          a.Title,
				"content":        a.Content,
				"image_url":      a.ImageURL,
				"target_url":     a.TargetURL,
				"placement_area": a.PlacementArea,
				"start_date":     validation.ISOToDatetimeLocal(a.StartDate, s.loc),
				"end_date":       validation.ISOToDatetimeLocal(a.EndDate, s.loc),
				"is_active":      checkboxValue(a.IsActive),
			}
		},
		FromForm: s.advertisementPayload,
	}
}

// advertisementPayload converts the dialog's local dates to UTC timestamps.
// Blank dates are sent as null.
func (s *Server) advertisementPayload(v validation.Values) (map[string]any, error) {
	errs := validation.Required(v, "title", "placement_area")
	start, err := validation.DatetimeLocalToISO(v.Get("start_date"), s.loc)
	if err != nil {
		errs.Add("start_date", validation.MsgInvalidDate)
	}
	end, err := validation.DatetimeLocalToISO(v.Get("end_date"), s.loc)
	if err != nil {
		errs.Add("end_date", validation.MsgInvalidDate)
	}
	if start != nil && end != nil {
		from, _ := time.Parse(time.RFC3339, *start)
		to, _ := time.Parse(time.RFC3339, *end)
		if to.Before(from) {
			errs.Add("end_date", msgEndBeforeStart)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return map[string]any{
		"title":          v.Get("title"),
		"content":        v.Get("content"),
		"image_url":      v.Get("image_url"),
		"target_url":     v.Get("target_url"),
		"placement_area": v.Get("placement_area"),
		"start_date":     start,
		"end_date":       end,
		"is_active":      validation.Checkbox(v.Get("is_active")),
	}, nil
}

func (s *Server) productResource() *crud.Resource[models.Product] {
	return &crud.Resource[models.Product]{
		Name:      "products",
		Title:     "Gestão de Produtos",
		Singular:  "Produto",
		BasePath:  productsPath,
		Paginated: true,
		Fields: []crud.Field{
			{Name: "name", Label: "Nome", Kind: crud.KindText, Required: true},
			{Name: "description", Label: "Descrição", Kind: crud.KindTextarea},
			{Name: "price", Label: "Preço (€)", Kind: crud.KindDecimal, Required: true, Placeholder: "29.90"},
			{Name: "stock_quantity", Label: "Quantidade em Stock", Kind: crud.KindNumber, Required: true, Placeholder: "0"},
			{Name: "sku", Label: "SKU", Kind: crud.KindText},
			{Name: "image_url", Label: "URL da Imagem", Kind: crud.KindURL},
			{Name: "category_id", Label: "Categoria", Kind: crud.KindSelect, Required: true, Placeholder: "Selecione uma categoria", Options: categoryOptions},
			{Name: "is_active", Label: "Ativo?", Kind: crud.KindCheckbox},
			{Name: "is_featured", Label: "Destacado?", Kind: crud.KindCheckbox},
		},
		Columns: []crud.Column[models.Product]{
			{Label: "ID", Value: func(p models.Product) string { return idString(p.ID) }},
			{Label: "Nome", Value: func(p models.Product) string { return p.Name }},
			{Label: "Preço", Value: func(p models.Product) string { return views.Price(p.Price) }},
			{Label: "Stock", Value: func(p models.Product) string { return strconv.Itoa(p.StockQuantity) }},
			{Label: "Categoria", Value: func(p models.Product) string { return dashIfEmpty(p.CategoryName) }},
			{Label: "Estado", Value: productState},
		},
		Ops: crud.Ops[models.Product]{
			List: func(ctx context.Context, caller *apiclient.Caller, page, perPage int) (models.Page[models.Product], error) {
				return caller.ListAdminProducts(ctx, page, perPage)
			},
			Create: func(ctx context.Context, caller *apiclient.Caller, payload map[string]any) error {
				_, err := caller.CreateProduct(ctx, payload)
				return err
			},
			Update: func(ctx context.Context, caller *apiclient.Caller, id uint, payload map[string]any) error {
				_, err := caller.UpdateProduct(ctx, id, payload)
				return err
			},
			Delete: func(ctx context.Context, caller *apiclient.Caller, id uint) error {
				return caller.DeleteProduct(ctx, id)
			},
		},
		Messages: crud.Messages{
			Created:      "Produto criado com sucesso!",
			Updated:      "Produto atualizado com sucesso!",
			Deleted:      "Produto eliminado.",
			LoadFailed:   "Não foi possível carregar os produtos.",
			SaveFailed:   "Não foi possível guardar o produto.",
			DeleteFailed: "Não foi possível eliminar o produto.",
			NotFound:     "Produto não encontrado.",
		},
		ID:    func(p models.Product) uint { return p.ID },
		Label: func(p models.Product) string { return p.Name },
		ToForm: func(p models.Product) validation.Values {
			v := validation.Values{
				"name":           p.Name,
				"description":    p.Description,
				"price":          p.Price,
				"stock_quantity": strconv.Itoa(p.StockQuantity),
				"sku":            p.SKU,
				"image_url":      p.ImageURL,
				"is_active":      checkboxValue(p.IsActive),
				"is_featured":    checkboxValue(p.IsFeatured),
			}
			if p.CategoryID != nil {
				v["category_id"] = idString(*p.CategoryID)
			}
			return v
		},
		FromForm: productPayload,
	}
}

// productPayload keeps the price as a two-place decimal string. Every
// product belongs to a category and carries a stock count.
func productPayload(v validation.Values) (map[string]any, error) {
	errs := validation.Required(v, "name", "price", "stock_quantity", "category_id")
	price := ""
	if v.Get("price") != "" {
		p, err := validation.Decimal(v.Get("price"))
		if err != nil {
			errs.Add("price", validation.MsgInvalidPrice)
		}
		price = p
	}
	stock, err := validation.Int(v.Get("stock_quantity"))
	if err != nil || (stock != nil && *stock < 0) {
		errs.Add("stock_quantity", validation.MsgInvalidNumber)
	}
	category, err := validation.Uint(v.Get("category_id"))
	if err != nil {
		errs.Add("category_id", validation.MsgInvalidNumber)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"name":           v.Get("name"),
		"description":    v.Get("description"),
		"price":          price,
		"stock_quantity": *stock,
		"sku":            v.Get("sku"),
		"image_url":      v.Get("image_url"),
		"category_id":    *category,
		"is_active":      validation.Checkbox(v.Get("is_active")),
		"is_featured":    validation.Checkbox(v.Get("is_featured")),
	}, nil
}

func categoryOptions(ctx context.Context, caller *apiclient.Caller) ([]crud.Option, error) {
	page, err := caller.ListAdminCategories(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]crud.Option, 0, len(page.Items))
	for _, cat := range page.Items {
		opts = append(opts, crud.Option{Value: idString(cat.ID), Label: cat.Name})
	}
	return opts, nil
}

func (s *Server) categoryResource() *crud.Resource[models.ProductCategory] {
	return &crud.Resource[models.ProductCategory]{
		Name:     "categories",
		Title:    "Gestão de Categorias",
		Singular: "Categoria",
		BasePath: categoriesPath,
		Fields: []crud.Field{
			{Name: "name", Label: "Nome", Kind: crud.KindText, Required: true},
			{Name: "description", Label: "Descrição", Kind: crud.KindTextarea},
		},
		Columns: []crud.Column[models.ProductCategory]{
			{Label: "ID", Value: func(c models.ProductCategory) string { return idString(c.ID) }},
			{Label: "Nome", Value: func(c models.ProductCategory) string { return c.Name }},
			{Label: "Descrição", Value: func(c models.ProductCategory) string { return dashIfEmpty(c.Description) }},
			{Label: "Produtos", Value: func(c models.ProductCategory) string { return strconv.Itoa(c.ProductCount) }},
			{Label: "Slug", Value: func(c models.ProductCategory) string { return c.Slug }},
		},
		Ops: crud.Ops[models.ProductCategory]{
			List: func(ctx context.Context, caller *apiclient.Caller, _, _ int) (models.Page[models.ProductCategory], error) {
				return caller.ListAdminCategories(ctx)
			},
			Create: func(ctx context.Context, caller *apiclient.Caller, payload map[string]any) error {
				_, err := caller.CreateCategory(ctx, payload)
				return err
			},
			Update: func(ctx context.Context, caller *apiclient.Caller, id uint, payload map[string]any) error {
				_, err := caller.UpdateCategory(ctx, id, payload)
				return err
			},
			Delete: func(ctx context.Context, caller *apiclient.Caller, id uint) error {
				return caller.DeleteCategory(ctx, id)
			},
		},
		Messages: crud.Messages{
			Created:      "Categoria criada com sucesso!",
			Updated:      "Categoria atualizada com sucesso!",
			Deleted:      "Categoria eliminada.",
			LoadFailed:   "Não foi possível carregar as categorias.",
			SaveFailed:   "Não foi possível guardar a categoria.",
			DeleteFailed: "Não foi possível eliminar a categoria.",
			NotFound:     "Categoria não encontrada.",
		},
		ID:    func(c models.ProductCategory) uint { return c.ID },
		Label: func(c models.ProductCategory) string { return c.Name },
		ToForm: func(c models.ProductCategory) validation.Values {
			return validation.Values{"name": c.Name, "description": c.Description}
		},
		FromForm: func(v validation.Values) (map[string]any, error) {
			if err := validation.Required(v, "name").Err(); err != nil {
				return nil, err
			}
			return map[string]any{"name": v.Get("name"), "description": v.Get("description")}, nil
		},
		CanDelete: func(_ uint, c models.ProductCategory) error {
			if c.ProductCount > 0 {
				return errCategoryHasProducts
			}
			return nil
		},
	}
}

func productState(p models.Product) string {
	state := "Inativo"
	if p.IsActive {
		state = "Ativo"
	}
	if p.IsFeatured {
		state += " · Destacado"
	}
	return state
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func checkboxValue(on bool) string {
	if on {
		return "on"
	}
	return ""
}
