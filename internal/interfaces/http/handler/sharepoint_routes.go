package handler

import (
	"github.com/erp/sharepointsync/internal/interfaces/http/router"
)

// SharePointRoutes creates the route group for the sync endpoints
func SharePointRoutes(h *SharePointHandler) *router.DomainGroup {
	group := router.NewDomainGroup("sharepoint", "/sharepoint")

	group.GET("/scan", h.Scan)
	group.GET("/scans", h.ListScans)

	group.GET("/pending", h.ListPending)
	group.GET("/pending/:id", h.GetPending)
	group.POST("/pending/:id/import", h.Import)
	group.POST("/pending/:id/ignore", h.Ignore)

	return group
}
