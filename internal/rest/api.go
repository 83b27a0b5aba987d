package rest

import (
	"github.com/dfryer1193/ndar/imaging/application"
	"github.com/gin-gonic/gin"
)

// NewApi registers the package and image routes on router
func NewApi(router *gin.Engine, pkg *application.Package) {
	h := &handler{pkg: pkg}

	router.GET("/healthz", Healthz)

	packagesV1 := router.Group("packages/v1")
	{
		packagesV1.GET("/images", h.GetRecords)
	}

	imagesV1 := router.Group("images/v1")
	{
		imagesV1.GET("/files", h.GetImageFiles)
	}
}
