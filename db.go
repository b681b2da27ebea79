package main

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taskroom/models"
)

func openDB(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		migrateDB(db, logger)
	}
	seedDB(db, cfg, logger)
	return db, nil
}

// migrateDB migrates models individually so a failure on one doesn't block
// others. Roles go first so the users FK can be applied safely.
func migrateDB(db *gorm.DB, logger *zap.Logger) {
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		logger.Warn("migration warning (roles)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		logger.Warn("migration warning (users)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Room{}); err != nil {
		logger.Warn("migration warning (rooms)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.UserRoom{}); err != nil {
		logger.Warn("migration warning (user_rooms)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Task{}); err != nil {
		logger.Warn("migration warning (tasks)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		logger.Warn("migration warning (notifications)", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
		logger.Warn("migration warning (refresh_tokens)", zap.Error(err))
	}
}

func seedDB(db *gorm.DB, cfg Config, logger *zap.Logger) {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "full access"},
		{Name: models.RoleUser, Description: "regular user"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "admin@taskroom.local").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
			logger.Warn("failed to find admin role", zap.Error(err))
			return
		}
		hashed, _ := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), bcrypt.DefaultCost)
		rid := role.ID
		admin := models.User{
			Email:          "admin@taskroom.local",
			FullName:       "Administrator",
			HashedPassword: hashed,
			IsVerified:     true,
			RoleID:         &rid,
		}
		if err := db.Create(&admin).Error; err != nil {
			logger.Warn("failed to seed admin user", zap.Error(err))
			return
		}
		logger.Info("seeded admin user", zap.String("email", admin.Email))
	}
}
