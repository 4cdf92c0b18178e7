package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

type authApi struct {
	svc user.ServiceInterface
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.ServiceInterface) {
	api := authApi{svc: svc}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	// authed endpoints
	authed := ag.Group("", jwt)
	authed.GET("/verify", api.verify)
	authed.POST("/change-password", api.changePassword)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr.Actor()})
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// verify confirms the bearer token and echoes the principal summary.
func (api *authApi) verify(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, actor)
}

func (api *authApi) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), actor, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "password changed"})
}

type facultyApi struct {
	svc user.ServiceInterface
}

func registerFacultyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.ServiceInterface) {
	api := facultyApi{svc: svc}

	fg := g.Group("/faculty", jwt, adminMiddleware())
	fg.GET("", api.query)
	fg.POST("", api.create)
	fg.PUT("/:id", api.update)
	fg.DELETE("/:id", api.destroy)
	fg.GET("/:id/students/count", api.studentCount)
}

func (api *facultyApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	faculty, err := api.svc.QueryFaculty(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying faculty")
	}
	return ctx.JSON(http.StatusOK, faculty)
}

func (api *facultyApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	data.Role = user.RoleFaculty
	if err := data.Validate(reqCtx, api.svc); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	usr, err := api.svc.CreateFaculty(reqCtx, actor, data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *facultyApi) update(ctx echo.Context) error {
	var data user.UpdateFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFaculty")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	usr, err := api.svc.UpdateFaculty(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// destroy deletes a faculty account. When the faculty still has assigned
// students, an optional reassignTo field names the faculty taking them over;
// without it the deletion is rejected with the dependent count.
func (api *facultyApi) destroy(ctx echo.Context) error {
	var data deleteFacultyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to deleteFacultyRequest")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	reassigned, err := api.svc.DeleteFaculty(ctx.Request().Context(), actor, ctx.Param("id"), data.ReassignTo)
	if err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.JSON(http.StatusOK, facultyDeletedResponse{StudentsReassigned: reassigned})
}

func (api *facultyApi) studentCount(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.FacultyStudentCount(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "counting faculty students")
	}
	return ctx.JSON(http.StatusOK, studentCountResponse{StudentCount: count})
}
