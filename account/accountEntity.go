package account

import "github.com/fundwit/go-commons/types"

// User employee account. Role is assigned on creation and immutable
// afterwards: UserUpdation deliberately carries no role field.
type User struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	Name   string   `json:"name" gorm:"unique_index"`
	Secret string   `json:"-"`

	Nickname string `json:"nickname"`
	Role     string `json:"role"`

	DepartmentID types.ID `json:"departmentId"`
	PositionID   types.ID `json:"positionId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Role     string   `json:"role"`

	DepartmentID types.ID `json:"departmentId"`
	PositionID   types.ID `json:"positionId"`
}

type UserCreation struct {
	Name   string `json:"name" binding:"required,lte=32"`
	Secret string `json:"secret" binding:"required,gte=6,lte=32"`

	Nickname string `json:"nickname" binding:"omitempty,gte=1,lte=32"`
	Role     string `json:"role" binding:"required,oneof=Manager Worker"`

	DepartmentID types.ID `json:"departmentId"`
	PositionID   types.ID `json:"positionId"`
}

type UserUpdation struct {
	Nickname string `json:"nickname" binding:"omitempty,lte=32"`

	DepartmentID types.ID `json:"departmentId"`
	PositionID   types.ID `json:"positionId"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6,lte=32"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}
