package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/config"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const attachTimeout = 30 * time.Second

var attachableExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// imageAttacher is the part of the API client used to bulk attach images.
type imageAttacher interface {
	UploadImage(ctx context.Context, dataURL string) (string, error)
	DeleteImage(ctx context.Context, filename string) error
	AppendImages(ctx context.Context, id string, filenames ...string) (client.Building, error)
}

func newAttachImagesCommand() *cobra.Command {
	var (
		buildingID string
		apiURL     string
	)
	cmd := &cobra.Command{
		Use:   "attach-images --building <id> <dir>",
		Short: "Upload every image in a directory and append them to a building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(appConfig.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			baseURL := apiURL
			if baseURL == "" {
				baseURL = localBaseURL(appConfig.HTTPAddress)
			}
			api := client.New(client.Config{BaseURL: baseURL, Timeout: attachTimeout, Logger: logger})

			building, err := attachImages(cmd.Context(), api, buildingID, args[0], logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d images\n", building.ID, len(building.Images))
			return nil
		},
	}
	cmd.Flags().StringVar(&buildingID, "building", "", "Identifier of the building to attach images to")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Base URL of the buildings API (defaults to the local listen address)")
	_ = cmd.MarkFlagRequired("building")
	return cmd
}

func localBaseURL(address string) string {
	if strings.HasPrefix(address, ":") {
		return "http://localhost" + address
	}
	return "http://" + address
}

// attachImages uploads the images found directly in dir, in name order, and
// appends all filenames to the building in one request. Uploads that
// succeeded are deleted again when a later step fails.
func attachImages(ctx context.Context, api imageAttacher, buildingID, dir string, logger *zap.Logger) (client.Building, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	buildingID = strings.TrimSpace(buildingID)
	if buildingID == "" {
		return client.Building{}, errors.New("building id is required")
	}

	paths, err := imageFiles(dir)
	if err != nil {
		return client.Building{}, err
	}

	uploaded := make([]string, 0, len(paths))
	for _, path := range paths {
		dataURL, err := encodeImageFile(path)
		if err == nil {
			var filename string
			filename, err = api.UploadImage(ctx, dataURL)
			if err == nil {
				logger.Info("image uploaded", zap.String("path", path), zap.String("filename", filename))
				uploaded = append(uploaded, filename)
				continue
			}
		}
		return client.Building{}, errors.Join(fmt.Errorf("upload %s: %w", path, err), discardUploads(ctx, api, uploaded, logger))
	}

	building, err := api.AppendImages(ctx, buildingID, uploaded...)
	if err != nil {
		return client.Building{}, errors.Join(fmt.Errorf("append images to %s: %w", buildingID, err), discardUploads(ctx, api, uploaded, logger))
	}
	logger.Info("images attached", zap.String("building_id", buildingID), zap.Int("count", len(uploaded)))
	return building, nil
}

func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !attachableExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files found in %s", dir)
	}
	return paths, nil
}

func encodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	detected := mimetype.Detect(data)
	mediaType, _, _ := strings.Cut(detected.String(), ";")
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%s is %s, not an image", path, mediaType)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func discardUploads(ctx context.Context, api imageAttacher, filenames []string, logger *zap.Logger) error {
	var failures []error
	for _, filename := range filenames {
		if err := api.DeleteImage(ctx, filename); err != nil {
			logger.Warn("uploaded image left behind", zap.String("filename", filename), zap.Error(err))
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
