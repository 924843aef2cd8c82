package main

import (
	"flag"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tibyan/models"
	"tibyan/pkg/config"
)

// Demo accounts for local development. All share the same password,
// printed at the end of the run.
var demoUsers = []models.User{
	{Email: "admin@tibyan.com", Name: "مدير النظام", Role: models.RoleAdmin, Department: "إدارة النظام", IsActive: true},
	{Email: "service@tibyan.com", Name: "موظف خدمة العملاء", Role: models.RoleAgent, Department: "خدمة العملاء", IsActive: true},
	{Email: "supervisor@tibyan.com", Name: "مشرف الجودة", Role: models.RoleAgent, Department: "الجودة والمراقبة", IsActive: true},
	{Email: "analyst@tibyan.com", Name: "محلل البيانات", Role: models.RoleAgent, Department: "التحليلات والبيانات", IsActive: true},
	{Email: "pr@tibyan.com", Name: "مدير العلاقات العامة", Role: models.RoleAgent, Department: "العلاقات العامة", IsActive: true},
}

func main() {
	password := flag.String("password", "password123", "password assigned to every demo user")
	reset := flag.Bool("reset", false, "delete existing users before seeding")
	flag.Parse()

	if config.DatabaseDSN == "" {
		log.Fatal("[seed] DATABASE_DSN is required")
	}
	db, err := gorm.Open(mysql.Open(config.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("[seed] failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("[seed] failed migrate: %v", err)
	}

	if *reset {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.User{}).Error; err != nil {
			log.Fatalf("[seed] failed to clear users: %v", err)
		}
		log.Printf("[seed] cleared existing users")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[seed] bcrypt: %v", err)
	}

	created := 0
	for _, u := range demoUsers {
		u.PasswordHash = string(hash)
		var existing models.User
		err := db.Where("email = ?", u.Email).First(&existing).Error
		if err == nil {
			log.Printf("[seed] %s already exists, skipping", u.Email)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("[seed] lookup %s: %v", u.Email, err)
		}
		if err := db.Create(&u).Error; err != nil {
			log.Fatalf("[seed] create %s: %v", u.Email, err)
		}
		log.Printf("[seed] created %s (%s) role=%s", u.Name, u.Email, u.Role)
		created++
	}

	log.Printf("[seed] done, %d users created, shared password: %s", created, *password)
}
