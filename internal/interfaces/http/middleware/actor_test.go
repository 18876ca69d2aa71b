package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/stretchr/testify/assert"
)

func TestActor(t *testing.T) {
	var got receiving.Actor
	router := gin.New()
	router.Use(Actor())
	router.POST("/test", func(c *gin.Context) {
		got = GetActor(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name string
		dept string
		who  string
		want receiving.Actor
	}{
		{"warehouse", "WAREHOUSE", "Ana", receiving.Actor{Name: "Ana", Department: receiving.DepartmentWarehouse}},
		{"lower case department", " finance ", "  Bruno ", receiving.Actor{Name: "Bruno", Department: receiving.DepartmentFinance}},
		{"missing headers", "", "", receiving.Actor{}},
		{"unknown department is kept for the workflow to reject", "sales", "Caio", receiving.Actor{Name: "Caio", Department: receiving.Department("SALES")}},
		{"long names are cut", "WAREHOUSE", strings.Repeat("n", MaxActorNameLength+20), receiving.Actor{Name: strings.Repeat("n", MaxActorNameLength), Department: receiving.DepartmentWarehouse}},
		{"accented names are cut by character", "WAREHOUSE", strings.Repeat("ã", MaxActorNameLength+5), receiving.Actor{Name: strings.Repeat("ã", MaxActorNameLength), Department: receiving.DepartmentWarehouse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tt.who != "" {
				req.Header.Set(ActorNameHeader, tt.who)
			}
			if tt.dept != "" {
				req.Header.Set(ActorDepartmentHeader, tt.dept)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got.Name))
		})
	}
}

func TestGetActor_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set(ActorNameHeader, "Ana")
	c.Request.Header.Set(ActorDepartmentHeader, "warehouse")

	assert.Equal(t, receiving.Actor{Name: "Ana", Department: receiving.DepartmentWarehouse}, GetActor(c))
}
