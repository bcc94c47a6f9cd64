package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"warchive/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type searchResponse struct {
	Success bool                 `json:"success"`
	Images  []models.ImageRecord `json:"images"`
	Total   int                  `json:"total"`
	Sources []string             `json:"sources"`
	Error   string               `json:"error"`
}

type videosResponse struct {
	Success bool                 `json:"success"`
	Videos  []models.ImageRecord `json:"videos"`
	Total   int                  `json:"total"`
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
	Total      int               `json:"total"`
}

type historyResponse struct {
	History []models.SearchHistory `json:"history"`
	Total   int                    `json:"total"`
}

type downloadedResponse struct {
	Images []models.DownloadedFile `json:"images"`
	Total  int                     `json:"total"`
}

func main() {
	global := flag.NewFlagSet("warchive", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	client := &apiClient{base: strings.TrimRight(*baseURL, "/")}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "categories":
		err = client.categories()
	case "search":
		err = client.search(rest, false)
	case "search-all":
		err = client.search(rest, true)
	case "videos":
		err = client.videos(rest)
	case "download":
		err = client.download(rest)
	case "downloaded":
		err = client.downloaded(rest)
	case "history":
		err = client.history(rest)
	case "stats":
		err = client.stats()
	case "watch":
		err = client.watch()
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func printUsage() {
	fmt.Println(`usage: warchive [-api URL] <command>

commands:
  categories              list categories
  search <query>          search Wikimedia Commons
  search-all <query>      search all sources
  videos <query>          search archive.org films
  download <url> [slug]   download one asset
  downloaded [slug]       list downloaded files
  history [clear]         show or clear search history
  stats                   collection statistics
  watch                   stream batch download progress`)
}

type apiClient struct {
	base string
}

func (a *apiClient) getJSON(path string, out any) error {
	resp, err := http.Get(a.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return fmt.Errorf("%s (%d)", body.Error, resp.StatusCode)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *apiClient) postJSON(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := http.Post(a.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *apiClient) categories() error {
	var res categoriesResponse
	if err := a.getJSON("/api/categories", &res); err != nil {
		return err
	}
	for _, cat := range res.Categories {
		fmt.Printf("%-18s %-22s %d images\n", cat.Slug, cat.Name, cat.ImageCount)
	}
	return nil
}

func (a *apiClient) search(args []string, all bool) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 20, "max results")
	category := fs.String("category", "", "category slug")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("query required")
	}
	q := strings.Join(fs.Args(), " ")

	path := "/api/search"
	if all {
		path = "/api/search-all"
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", fmt.Sprint(*limit))
	if *category != "" {
		params.Set("category", *category)
	}

	var res searchResponse
	if err := a.getJSON(path+"?"+params.Encode(), &res); err != nil {
		return err
	}
	for _, img := range res.Images {
		fmt.Printf("[%s] %s\n    %s\n", img.Source, img.Title, img.SourceURL)
	}
	if len(res.Sources) > 0 {
		fmt.Printf("%d results from %s\n", res.Total, strings.Join(res.Sources, ", "))
	} else {
		fmt.Printf("%d results\n", res.Total)
	}
	return nil
}

func (a *apiClient) videos(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("query required")
	}
	params := url.Values{}
	params.Set("q", strings.Join(args, " "))

	var res videosResponse
	if err := a.getJSON("/api/videos?"+params.Encode(), &res); err != nil {
		return err
	}
	for _, v := range res.Videos {
		fmt.Printf("%s (%s)\n    %s\n", v.Title, v.Year, v.PageURL)
	}
	fmt.Printf("%d videos\n", res.Total)
	return nil
}

func (a *apiClient) download(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("url required")
	}
	payload := map[string]string{"url": args[0]}
	if len(args) > 1 {
		payload["category"] = args[1]
	}

	var res models.DownloadResult
	if err := a.postJSON("/api/download", payload, &res); err != nil {
		return err
	}
	if res.AlreadyExists {
		fmt.Printf("already exists: %s\n", res.FilePath)
		return nil
	}
	fmt.Printf("saved %s (%d bytes)\n", res.FilePath, res.FileSize)
	return nil
}

func (a *apiClient) downloaded(args []string) error {
	path := "/api/downloaded"
	if len(args) > 0 {
		path += "?category=" + url.QueryEscape(args[0])
	}
	var res downloadedResponse
	if err := a.getJSON(path, &res); err != nil {
		return err
	}
	for _, f := range res.Images {
		fmt.Printf("%-18s %10d  %s\n", f.Category, f.FileSize, f.Filename)
	}
	fmt.Printf("%d files\n", res.Total)
	return nil
}

func (a *apiClient) history(args []string) error {
	if len(args) > 0 && args[0] == "clear" {
		req, err := http.NewRequest(http.MethodDelete, a.base+"/api/history", nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		fmt.Println("history cleared")
		return nil
	}

	var res historyResponse
	if err := a.getJSON("/api/history", &res); err != nil {
		return err
	}
	for _, h := range res.History {
		fmt.Printf("%s  %-40s %d results\n", h.CreatedAt.Format(time.DateTime), h.Query, h.ResultsCount)
	}
	return nil
}

func (a *apiClient) stats() error {
	var res map[string]any
	if err := a.getJSON("/api/stats", &res); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

// watch streams batch download progress events until interrupted.
func (a *apiClient) watch() error {
	wsURL := strings.Replace(a.base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()

	fmt.Println("watching for progress events, ctrl-c to stop")
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(payload))
	}
}
