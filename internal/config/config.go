package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	GoEnv       string // dev/prod
	FrontendURL string // 決済後のリダイレクト先
	BackendURL  string // webhook通知URL（notification_urlで使う）

	MercadoPagoAccessToken string
	WompiPublicKey         string
	WompiPrivateKey        string
	WompiEnv               string // sandbox/production
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:       os.Getenv("GO_ENV"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		BackendURL:  os.Getenv("BACKEND_URL"),

		MercadoPagoAccessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		WompiPublicKey:         os.Getenv("WOMPI_PUBLIC_KEY"),
		WompiPrivateKey:        os.Getenv("WOMPI_PRIVATE_KEY"),
		WompiEnv:               os.Getenv("WOMPI_ENV"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.FrontendURL == "" {
		return Config{}, fmt.Errorf("FRONTEND_URL is required")
	}
	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.MercadoPagoAccessToken == "" {
		return Config{}, fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if cfg.WompiPublicKey == "" {
		return Config{}, fmt.Errorf("WOMPI_PUBLIC_KEY is required")
	}
	if cfg.WompiPrivateKey == "" {
		return Config{}, fmt.Errorf("WOMPI_PRIVATE_KEY is required")
	}

	if cfg.WompiEnv == "" {
		cfg.WompiEnv = "sandbox"
	}

	return cfg, nil
}
