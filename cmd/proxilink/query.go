package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/client"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	queryLat   float64
	queryLon   float64
	categories string
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a running server for recommendations near a point",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "Server URL")
	queryCmd.Flags().Float64Var(&queryLat, "lat", 0, "Latitude")
	queryCmd.Flags().Float64Var(&queryLon, "lon", 0, "Longitude")
	queryCmd.Flags().StringVar(&categories, "categories", "", "Comma separated categories, server defaults if empty")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of results")
	_ = queryCmd.MarkFlagRequired("lat")
	_ = queryCmd.MarkFlagRequired("lon")
}

func runQuery(cmd *cobra.Command, args []string) error {
	c, err := client.New(serverURL)
	if err != nil {
		return err
	}
	var cats []string
	if categories != "" {
		cats = strings.Split(categories, ",")
	}
	resp, err := c.Recommendations(cmd.Context(), model.Point{Lat: queryLat, Lon: queryLon}, cats, queryLimit)
	if err != nil {
		var ae *apierror.Error
		if errors.As(err, &ae) {
			return fmt.Errorf("server responded %s", ae.Text())
		}
		return err
	}
	for _, f := range resp.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "category %s failed: %s\n", f.Category, f.Error)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Recommendations)
}
