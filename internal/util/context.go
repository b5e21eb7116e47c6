package util

import (
	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/dao/model"
)

const (
	UserIDKey   = "x-user-id"
	UsernameKey = "x-user-name"
	RoleKey     = "x-role"
	TeamIDKey   = "x-team-id"
)

// TeamIDNull marks a user without a team.
const TeamIDNull = 0

func SetJWTContext(
	c *gin.Context,
	msg JWTMessage,
) {
	c.Set(UserIDKey, msg.UserID)
	c.Set(UsernameKey, msg.Username)
	c.Set(RoleKey, msg.Role)
	c.Set(TeamIDKey, msg.TeamID)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.UserID = ctx.GetUint(UserIDKey)
	msg.Username = ctx.GetString(UsernameKey)
	msg.TeamID = ctx.GetUint(TeamIDKey)

	role, _ := ctx.Get(RoleKey)
	msg.Role = role.(model.Role)
	return msg
}
