package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/accountd/internal/server/services"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateRequest uses pointers so absent fields stay nil and are left
// untouched by the flow.
type updateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

func toUserUpdate(req *updateRequest) *services.UserUpdate {
	return &services.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}
}

func (s *Server) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) Register(c *gin.Context) {

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.users.Register(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", session.User.ID)
	success(c, http.StatusCreated, "Success", gin.H{"token": session.Token, "user": session.User})
}

func (s *Server) Login(c *gin.Context) {

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	success(c, http.StatusOK, "Success", gin.H{"token": session.Token, "user": session.User})
}

func (s *Server) GetUser(c *gin.Context) {

	userID, ok := authorizedUserID(c)
	if !ok {
		s.deny(c)
		return
	}

	user, err := s.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	success(c, http.StatusOK, "Success", gin.H{"user": user})
}

func (s *Server) UpdateUser(c *gin.Context) {

	userID, ok := authorizedUserID(c)
	if !ok {
		s.deny(c)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UpdateUser(c.Request.Context(), userID, toUserUpdate(&req))
	if err != nil {
		s.writeError(c, err)
		return
	}

	success(c, http.StatusOK, "User Updated", gin.H{"user": user})
}
