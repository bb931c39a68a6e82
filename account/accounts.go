package account

import (
	"crypto/sha256"
	"encoding/hex"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/idgen"
	"industrium/persistence"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc = CreateUser
	QueryUsersFunc = QueryUsers
	DeleteUserFunc = DeleteUser

	QueryAccountNamesFunc = QueryAccountNames
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if !s.Perms.HasRole(authority.RoleManager) {
		return nil, bizerror.ErrForbidden
	}

	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Secret: HashSha256(c.Secret),
		Nickname: c.Nickname, Role: c.Role, DepartmentID: c.DepartmentID, PositionID: c.PositionID,
		CreateTime: types.CurrentTimestamp()}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Create(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Role: user.Role,
		DepartmentID: user.DepartmentID, PositionID: user.PositionID}, nil
}

func QueryUsers(s *session.Session) (*[]UserInfo, error) {
	var users []UserInfo
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

func DetailUser(userId types.ID, s *session.Session) (*UserInfo, error) {
	var user UserInfo
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&User{}).Where(&User{ID: userId}).Scan(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(userId types.ID, c *UserUpdation, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) && userId != s.Identity.ID {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"nickname": c.Nickname}
		if c.DepartmentID != 0 {
			updates["department_id"] = c.DepartmentID
		}
		if c.PositionID != 0 {
			updates["position_id"] = c.PositionID
		}
		return tx.Model(&User{}).Where(&User{ID: userId}).Update(updates).Error
	})
}

func DeleteUser(userId types.ID, s *session.Session) error {
	if !s.Perms.HasRole(authority.RoleManager) {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.GormDB(s.Context).Delete(&User{}, "id = ?", userId).Error
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrInvalidPassword
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

func QueryAccountNames(ids []types.ID) (map[types.ID]string, error) {
	result := map[types.ID]string{}
	if len(ids) == 0 {
		return result, nil
	}
	var records []User
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	if err := db.Model(&User{}).Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}
