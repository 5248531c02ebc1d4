package v1

import (
	"github.com/gin-gonic/gin"

	"sysdict/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the routes shared by the dictionary catalogs.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Reads require readPerm, mutations writePerm. Delete is a batch
// operation taking {"ids": [...]} on the collection path.
//
// Usage:
//
//	handler := handlers.NewDictionaryCategoryHandler(baseHandler, manager)
//	RegisterCatalogRoutes(system.Group("/categories"), handler, middleware.PermDictionaryRead, middleware.PermDictionaryWrite)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, readPerm, writePerm string) {
	group.GET("", middleware.RequirePermission(readPerm), handler.List)
	group.POST("", middleware.RequirePermission(writePerm), handler.Create)
	group.DELETE("", middleware.RequirePermission(writePerm), handler.Delete)
	group.GET("/:id", middleware.RequirePermission(readPerm), handler.Get)
	group.PUT("/:id", middleware.RequirePermission(writePerm), handler.Update)
}
