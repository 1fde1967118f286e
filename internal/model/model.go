package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&VideoDocument{},
}

// VideoDocument is the persisted annotation document of one video.
// The whole annotation list is rewritten on every change.
type VideoDocument struct {
	VideoID         string         `json:"videoId" gorm:"primaryKey;size:255"`
	Annotations     datatypes.JSON `json:"annotations"`
	AnnotationCount int            `json:"annotationCount"`
	Revision        uint           `json:"revision" gorm:"default:0"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" gorm:"index:idx_video_document_updated_at"`
}

func (*VideoDocument) TableName() string {
	return "video_documents"
}
