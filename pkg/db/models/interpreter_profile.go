package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/nordtolk/nordtolk-backend/pkg/db/types"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// InterpreterProfile carries matching attributes for a user with the
// interpreter role.
type InterpreterProfile struct {
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;primaryKey"`
	Type               enums.InterpreterType `gorm:"column:type;type:text;not null"`
	Gender             enums.Gender          `gorm:"column:gender;type:text;not null"`
	Levels             pq.StringArray        `gorm:"column:levels;type:text[];not null;default:ARRAY[]::text[]"`
	LanguageIDs        dbtypes.UUIDArray     `gorm:"column:language_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	Towns              pq.StringArray        `gorm:"column:towns;type:text[];not null;default:ARRAY[]::text[]"`
	WorksInAllTowns    bool                  `gorm:"column:works_in_all_towns;not null;default:false"`
	NotGetNotification bool                  `gorm:"column:not_get_notification;not null;default:false"`
	NotGetNighttime    bool                  `gorm:"column:not_get_nighttime;not null;default:false"`
	NotGetEmergency    bool                  `gorm:"column:not_get_emergency;not null;default:false"`
	NotGetEmail        bool                  `gorm:"column:not_get_email;not null;default:false"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
