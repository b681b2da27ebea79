package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taskroom/models"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: go run ./cmd/create_user <email> <password> <full name> [ADMIN|USER]")
		os.Exit(2)
	}
	email := os.Args[1]
	password := os.Args[2]
	fullName := os.Args[3]
	roleName := models.RoleUser
	if len(os.Args) > 4 {
		roleName = strings.ToUpper(os.Args[4])
	}
	if roleName != models.RoleAdmin && roleName != models.RoleUser {
		log.Fatalf("unknown role %q", roleName)
	}

	dsn := os.Getenv("TASKROOM_DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("TASKROOM_DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure the role exists
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName}
		db.Create(&role)
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", email, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{Email: email, HashedPassword: hpw, FullName: fullName, IsVerified: true, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", email, user.ID, roleName)
}
