// krypton-admin 运维命令行，目前只支持创建管理员
//
//	krypton-admin create --email a@b.com --name Ops --phone +15550000000 --password 'Secret1!'
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/infrastructure/database"
	"krypton/internal/logger"
	"krypton/internal/service"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "create" {
		fmt.Fprintln(os.Stderr, "usage: krypton-admin create --email --name --phone --password [--config]")
		os.Exit(2)
	}

	fs := pflag.NewFlagSet("create", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "path to the yaml config file")
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "Admin", "admin display name")
	phone := fs.String("phone", "", "admin phone in E.164 format")
	password := fs.String("password", "", "admin password")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}

	creds := service.NewCredentialService(db, cfg, log)
	user, _, err := creds.CreateAdmin(context.Background(), service.RegisterInput{
		Name:     *name,
		Email:    *email,
		Phone:    *phone,
		Password: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("admin created: id=%s email=%s\n", user.ID, user.Email)
}
