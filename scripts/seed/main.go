//go:build ignore

// ===========================================================================
// Script tạo seed data cho development/testing
// Chạy: go run scripts/seed/main.go
// ===========================================================================

package main

import (
	"fmt"
	"log"
	"os"

	"salechat-gin/internal/config"
	"salechat-gin/internal/database"
	"salechat-gin/internal/models"
	"salechat-gin/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	fmt.Println("🌱 Bắt đầu seed data...")

	// Load config
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Không thể load config: %v", err)
	}

	// Khởi tạo logger
	zapLog, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Không thể tạo logger: %v", err)
	}

	// Kết nối database
	db, err := database.NewConnection(&cfg.Database, zapLog)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}

	fmt.Println("✅ Đã kết nối database")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Không thể migrate: %v", err)
	}

	// =========================================================================
	// 1. Tạo tài khoản nhân viên
	// =========================================================================
	users := []*models.User{
		{
			Email:    "admin@demo.com",
			Name:     "Admin Demo",
			Role:     models.RoleAdmin,
			IsActive: true,
		},
		{
			Email:    "sale1@demo.com",
			Name:     "Sale Một",
			Role:     models.RoleSaler,
			IsActive: true,
		},
		{
			Email:    "sale2@demo.com",
			Name:     "Sale Hai",
			Role:     models.RoleSaler,
			IsActive: true,
		},
	}

	for _, user := range users {
		// Set password
		if err := user.SetPassword("Password123!"); err != nil {
			zapLog.Warn("Không thể set password", zap.Error(err))
		}

		// Kiểm tra email đã tồn tại chưa
		var existing models.User
		if err := db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			fmt.Printf("⚠️  User '%s' đã tồn tại\n", user.Email)
			continue
		}

		if err := db.Create(user).Error; err != nil {
			zapLog.Warn("Không thể tạo user", zap.String("email", user.Email), zap.Error(err))
		} else {
			fmt.Printf("✅ Đã tạo User: %s (%s)\n", user.Name, user.Role)
		}
	}

	// =========================================================================
	// 2. Tạo hội thoại mẫu
	// =========================================================================
	samples := []*models.Chat{
		{
			FromUser: "42",
			FromName: "Lan",
			ToUser:   models.SaleChannelKey,
			ToName:   "Saler",
			Type:     models.TypeMessage,
			Content:  "Shop ơi, mẫu áo này còn size M không ạ?",
			Status:   models.StatusSent,
		},
		{
			FromUser: models.SaleChannelKey,
			FromName: "Saler",
			ToUser:   "42",
			ToName:   "Lan",
			Type:     models.TypeMessage,
			Content:  "Dạ còn chị nhé, chị cho em xin địa chỉ ạ!",
			Status:   models.StatusSent,
		},
	}

	var chatCount int64
	db.Model(&models.Chat{}).Count(&chatCount)
	if chatCount > 0 {
		fmt.Println("⚠️  Bảng chat đã có dữ liệu, bỏ qua hội thoại mẫu")
	} else {
		for _, chat := range samples {
			if err := db.Create(chat).Error; err != nil {
				zapLog.Warn("Không thể tạo chat mẫu", zap.Error(err))
			}
		}
		fmt.Printf("✅ Đã tạo %d tin nhắn mẫu\n", len(samples))
	}

	// =========================================================================
	// Summary
	// =========================================================================
	fmt.Println("")
	fmt.Println("========================================")
	fmt.Println("🎉 Seed data hoàn tất!")
	fmt.Println("========================================")
	fmt.Println("")
	fmt.Println("📝 Thông tin đăng nhập:")
	fmt.Println("   Email:    admin@demo.com")
	fmt.Println("   Password: Password123!")
	fmt.Println("")
	fmt.Println("💡 Test websocket khách hàng:")
	fmt.Println("   ws://localhost:8080/ws?user=42&name=Lan")
	fmt.Println("")

	os.Exit(0)
}
