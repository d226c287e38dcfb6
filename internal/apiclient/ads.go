package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"fitnessweb/internal/models"
)

// AdvertisementsFor returns the active advertisements of a placement area.
func (c *Caller) AdvertisementsFor(ctx context.Context, placement string) ([]models.Advertisement, error) {
	var out []models.Advertisement
	path := "/advertisements/" + url.PathEscape(placement)
	if err := c.do(ctx, "/advertisements/:placement", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrackAdClick records a click on an advertisement.
func (c *Caller) TrackAdClick(ctx context.Context, id uint) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/advertisements/%d/click", id), nil, nil, nil)
}
