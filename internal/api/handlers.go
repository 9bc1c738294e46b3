package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dataservices/internal/model"
)

// @Summary List products of the current tenant
// @Tags Products
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Success 200 {array} model.Product
// @Router /api/products [get]
func (a *API) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.Products.GetAllProducts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// @Summary Get a product
// @Tags Products
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path string true "Product id"
// @Success 200 {object} model.Product
// @Failure 404 {object} errorResponse
// @Router /api/products/{id} [get]
func (a *API) GetProductByID(w http.ResponseWriter, r *http.Request) {
	product, found, err := a.Products.GetProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// @Summary Create or replace a product
// @Description The tenant comes from the request, never from the body.
// @Tags Products
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path string true "Product id"
// @Param body body model.Product true "Product fields"
// @Success 200 {object} model.Product
// @Failure 400 {object} errorResponse
// @Router /api/products/{id} [put]
func (a *API) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var details model.Product
	if !decodeBody(w, r, &details) {
		return
	}

	saved, err := a.Products.UpsertProduct(r.Context(), chi.URLParam(r, "id"), details)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// @Summary Delete a product
// @Tags Products
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path string true "Product id"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /api/products/{id} [delete]
func (a *API) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.Products.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List users of the current tenant
// @Tags Users
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Success 200 {array} model.User
// @Router /api/users [get]
func (a *API) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Users.GetAllUsers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// @Summary Get a user
// @Tags Users
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path int true "User id"
// @Success 200 {object} model.User
// @Failure 404 {object} errorResponse
// @Router /api/users/{id} [get]
func (a *API) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, found, err := a.Users.GetUserByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// @Summary Create or replace a user
// @Tags Users
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path int true "User id"
// @Param body body model.User true "User fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errorResponse
// @Router /api/users/{id} [put]
func (a *API) UpsertUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var details model.User
	if !decodeBody(w, r, &details) {
		return
	}

	saved, err := a.Users.UpsertUser(r.Context(), id, details)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// @Summary Delete a user
// @Tags Users
// @Param X-Tenant-ID header string false "Tenant identifier" default(default)
// @Param id path int true "User id"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /api/users/{id} [delete]
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	deleted, err := a.Users.DeleteUser(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}
