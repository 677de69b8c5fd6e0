// Comando keys: genera e inspecciona el par Ed25519 del bridge.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/gmailbridge/internal/config"
	"github.com/dropDatabas3/gmailbridge/internal/keys"
)

func main() {
	var (
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env")
		flagConfig  = flag.String("config", "", "ruta a config.yaml")
		cmdGenerate = flag.Bool("generate", false, "genera un par nuevo en los paths configurados")
		cmdInspect  = flag.Bool("inspect", false, "muestra kid y JWK público del par configurado")
		flagForce   = flag.Bool("force", false, "pisa claves existentes al generar")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}

	path := *flagConfig
	if path == "" {
		if _, err := os.Stat("configs/config.yaml"); err == nil {
			path = "configs/config.yaml"
		} else {
			path = "configs/config.example.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch {
	case *cmdGenerate:
		if !*flagForce {
			if _, err := os.Stat(cfg.Keys.PrivatePath); err == nil {
				log.Fatalf("ya existe %s (usar -force para pisar)", cfg.Keys.PrivatePath)
			}
		}
		kid, err := keys.WritePEMPair(cfg.Keys.PrivatePath, cfg.Keys.PublicPath)
		if err != nil {
			log.Fatalf("generate: %v", err)
		}
		fmt.Printf("generated key pair\n  kid:     %s\n  private: %s\n  public:  %s\n",
			kid, cfg.Keys.PrivatePath, cfg.Keys.PublicPath)

	case *cmdInspect:
		m := keys.NewManager(keys.Config{
			PublicPath:  cfg.Keys.PublicPath,
			PrivatePath: cfg.Keys.PrivatePath,
		})
		jwk, err := m.PublicJWK()
		if err != nil {
			log.Fatalf("inspect: %v", err)
		}
		out, _ := json.MarshalIndent(jwk, "", "  ")
		fmt.Println(string(out))

	default:
		flag.Usage()
		os.Exit(2)
	}
}
