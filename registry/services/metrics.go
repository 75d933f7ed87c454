package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	artifactsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_artifacts_created_total",
		Help: "Number of artifacts created.",
	})

	versionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_versions_created_total",
		Help: "Number of artifact versions created.",
	})

	filesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_files_uploaded_total",
		Help: "Number of files uploaded.",
	})

	fileBytesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_file_bytes_uploaded_total",
		Help: "Total bytes of uploaded file content.",
	})

	filesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_files_downloaded_total",
		Help: "Number of file downloads served.",
	})

	filesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_files_deleted_total",
		Help: "Number of files deleted.",
	})
)
