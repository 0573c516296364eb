package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	restservice "github.com/solestate/estated/internal/interface/rest"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"gopkg.in/macaroon.v2"
)

func baseURL(ctx *cli.Context) string {
	url := viper.GetString(urlFlagName)
	if ctx.IsSet(urlFlagName) {
		url = ctx.String(urlFlagName)
	}
	return strings.TrimSuffix(url, "/")
}

// getCredentials returns the macaroon given by flag or, failing that, the
// admin macaroon found in the datadir. Without either it returns an empty
// string and the server decides whether the call is allowed.
func getCredentials(ctx *cli.Context) (string, error) {
	if mac := ctx.String(macaroonFlagName); mac != "" {
		return mac, nil
	}

	macaroonPath := filepath.Join(
		ctx.String(datadirFlagName), restservice.MacaroonsDir, restservice.AdminMacaroonFile,
	)
	if _, err := os.Stat(macaroonPath); err != nil {
		return "", nil
	}
	mac, err := getMacaroon(macaroonPath)
	if err != nil {
		return "", fmt.Errorf("failed to read macaroon: %w", err)
	}
	return mac, nil
}

func getMacaroon(path string) (string, error) {
	macBytes, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read macaroon %s: %s", path, err)
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return "", fmt.Errorf("failed to parse macaroon %s: %s", path, err)
	}

	return hex.EncodeToString(macBytes), nil
}

func get[T any](url string) (result T, err error) {
	return request[T](http.MethodGet, url, "", nil)
}

func post[T any](url string, body any) (result T, err error) {
	return request[T](http.MethodPost, url, "", body)
}

func getWithMacaroon[T any](url, macaroon string) (result T, err error) {
	return request[T](http.MethodGet, url, macaroon, nil)
}

func postWithMacaroon[T any](url, macaroon string, body any) (result T, err error) {
	return request[T](http.MethodPost, url, macaroon, body)
}

func request[T any](method, url, macaroon string, body any) (result T, err error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return result, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")
	if len(macaroon) > 0 {
		req.Header.Add("X-Macaroon", macaroon)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp restservice.ErrorResponse
		if jerr := json.Unmarshal(buf, &errResp); jerr != nil || errResp.Name == "" {
			err = fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(buf))
			return
		}
		err = fmt.Errorf("%s (%d): %s", errResp.Name, errResp.Code, errResp.Message)
		return
	}

	err = json.Unmarshal(buf, &result)
	return
}

func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}
