package stores

import (
	"os"

	"github.com/sirupsen/logrus"

	"portfolio-complete/core"
	"portfolio-complete/stores/aws"
	"portfolio-complete/stores/memory"
	"portfolio-complete/stores/snapshot"
	"portfolio-complete/stores/sqlite"
)

// GetStore selects a catalog backend from the STORAGE_TYPE environment
// variable. The snapshot backend reproduces the original flat-file layout and
// is the default for anything persistent; memory is the fallback.
func GetStore(assets core.AssetStore) core.CatalogStore {
	storageType := os.Getenv("STORAGE_TYPE")

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	var (
		store core.CatalogStore
		err   error
	)
	switch storageType {
	case "snapshot", "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store, err = snapshot.NewStore(basePath, assets)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "portfolio.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store, err = sqlite.NewStore(dataSourceName, assets)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store, err = aws.NewStore(bucketName, assets)
	default:
		store = memory.NewStore(assets)
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		logrus.WithFields(storageField).WithError(err).Fatal("Failed to initialize storage")
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
