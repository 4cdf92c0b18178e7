package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/marks"
)

type marksApi struct {
	svc marks.ServiceInterface
}

func registerMarksAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc marks.ServiceInterface) {
	api := marksApi{svc: svc}

	mg := g.Group("/marks", jwt)
	mg.GET("", api.query)
	mg.GET("/student/:id", api.queryByStudent)
	mg.POST("", api.create)
	mg.PUT("/:id", api.update)
	mg.DELETE("/:id", api.destroy)
}

func (api *marksApi) query(ctx echo.Context) error {
	var filter marks.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	recs, err := api.svc.Query(ctx.Request().Context(), actor, filter)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *marksApi) queryByStudent(ctx echo.Context) error {
	var filter marks.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	recs, err := api.svc.QueryByStudent(ctx.Request().Context(), actor, ctx.Param("id"), filter)
	if err != nil {
		return errors.Wrap(err, "querying student marks")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *marksApi) create(ctx echo.Context) error {
	var data marks.NewMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMarks")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating marks")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *marksApi) update(ctx echo.Context) error {
	var data marks.UpdateMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMarks")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating marks")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *marksApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return ctx.NoContent(http.StatusNoContent)
}
