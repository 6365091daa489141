package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/inventory"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/transport"
	"github.com/Skotchmaster/inventory_api/internal/util"
)

type ItemsHTTP struct {
	Svc             *service.InventoryService
	DefaultPageSize int
}

type itemParams struct {
	page, size, charName, itemName, sort string
}

var (
	itemsParams       = itemParams{page: "page", size: "size", charName: "charName", itemName: "itemName", sort: "activeColumn"}
	legacyItemsParams = itemParams{page: "page", size: "page_size", charName: "char_name", itemName: "item_name", sort: "sort"}
)

func (h *ItemsHTTP) GetItems(c echo.Context) error {
	return h.items(c, itemsParams)
}

// GetItemsLegacy serves /get_items2, which predates the camelCase parameters.
func (h *ItemsHTTP) GetItemsLegacy(c echo.Context) error {
	return h.items(c, legacyItemsParams)
}

func (h *ItemsHTTP) items(c echo.Context, p itemParams) error {
	page, size, err := util.ParsePage(c.QueryParam(p.page), c.QueryParam(p.size), h.defaultPageSize())
	if err != nil {
		detail := util.ErrInvalidPage.Error()
		if errors.Is(err, util.ErrInvalidSize) {
			detail = util.ErrInvalidSize.Error()
		}
		return echo.NewHTTPError(http.StatusBadRequest, detail)
	}

	q := inventory.Query{
		Page:          page,
		PageSize:      size,
		CharacterName: c.QueryParam(p.charName),
		ItemName:      c.QueryParam(p.itemName),
		SortColumn:    c.QueryParam(p.sort),
	}

	res, err := h.Svc.Items(c.Request().Context(), q)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.JSON(http.StatusOK, transport.ItemsResponse{
		Results: res.Items,
		Page:    res.Page,
		Size:    res.Size,
		Count:   res.Count,
	})
}

func (h *ItemsHTTP) GetCharNames(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Svc.CharacterNames(c.Request().Context()))
}

func (h *ItemsHTTP) defaultPageSize() int {
	if h.DefaultPageSize > 0 {
		return h.DefaultPageSize
	}
	return 25
}
