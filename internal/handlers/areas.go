package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aurenix/internal/middleware"
	"aurenix/internal/models"
	"aurenix/internal/service"
)

// Landing sends accounts that already have a role to its area and lets the
// rest pick one.
func (h HandlerSet) Landing(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if identity.Role == models.UserRoleCustomer || identity.Role == models.UserRoleSeller {
		c.Redirect(http.StatusFound, service.LandingPath(identity.Role))
		return
	}
	c.HTML(http.StatusOK, "landing.html", page(c, gin.H{"Title": "Welcome"}))
}

func (h HandlerSet) CustomerArea(c *gin.Context) {
	products, err := h.deps.Catalog.ForCustomer(c.Request.Context())
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "customer.html", page(c, gin.H{
		"Title":    "Shop",
		"Products": products,
	}))
}

func (h HandlerSet) SellerArea(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	products, err := h.deps.Catalog.ForSeller(c.Request.Context(), identity.UserID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "seller.html", page(c, gin.H{
		"Title":    "Your products",
		"Products": products,
	}))
}

func (h HandlerSet) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("search"))
	products, err := h.deps.Catalog.Search(c.Request.Context(), term)
	if err != nil {
		h.Fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "search.html", page(c, gin.H{
		"Title":    "Search",
		"Search":   term,
		"Products": products,
	}))
}
