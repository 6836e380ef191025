package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"samaj/internal/models"
	"samaj/internal/services"
	"samaj/internal/utils"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func userIDFromVars(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	idStr := mux.Vars(r)["id"]
	userID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		utils.SendJSONError(w, "invalid user id", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return userID, true
}

func (u *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		log.Error().Err(err).Msg("Invalid member data input for Register")
		utils.SendJSONError(w, "Invalid member data input: "+err.Error(), http.StatusBadRequest)
		return
	}

	registeredUser, err := u.userService.RegisterUser(r.Context(), &user)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, registeredUser)
}

func (u *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := u.userService.GetAllUsers(r.Context())
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, users)
}

func (u *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromVars(w, r)
	if !ok {
		return
	}

	user, err := u.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

func (u *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromVars(w, r)
	if !ok {
		return
	}

	var updatePayload models.UserProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&updatePayload); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for UpdateUser")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	updatedUser, err := u.userService.UpdateUser(r.Context(), userID, &updatePayload)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updatedUser)
}

func (u *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromVars(w, r)
	if !ok {
		return
	}

	if err := u.userService.DeleteUser(r.Context(), userID); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
