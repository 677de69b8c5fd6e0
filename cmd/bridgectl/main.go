// bridgectl: CLI de operación contra un bridge corriendo.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) get(path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	resp, err := c.HTTP.Get(url)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("BRIDGE_URL", "http://localhost:3000")
		out     = envOr("BRIDGE_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "bridgectl",
		Short: "CLI de operación del bridge de identidad",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del bridge (env BRIDGE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 10 * time.Second}}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Consulta /__heartbeat__",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl.BaseURL, cl.OutFormat = baseURL, out
			status, body, err := cl.get("/__heartbeat__")
			if err != nil {
				return err
			}
			cl.print(status, body)
			if status != http.StatusOK {
				return fmt.Errorf("bridge unhealthy (status %d)", status)
			}
			return nil
		},
	}

	wellKnownCmd := &cobra.Command{
		Use:   "well-known",
		Short: "Muestra el documento de descubrimiento BrowserID",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl.BaseURL, cl.OutFormat = baseURL, "json"
			status, body, err := cl.get("/.well-known/browserid")
			if err != nil {
				return err
			}
			cl.print(status, body)
			if status != http.StatusOK {
				return fmt.Errorf("unexpected status %d", status)
			}
			return nil
		},
	}

	root.AddCommand(healthCmd, wellKnownCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
