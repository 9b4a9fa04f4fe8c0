package server

import (
	"github.com/labstack/echo/v4"

	"github.com/quarrylabs/ragserve/internal/apierror"
)

// Machine-readable signals carried in success payloads so clients can branch
// without parsing messages.
const (
	signalProjectsRetrieved       = "PROJECTS_RETRIEVED"
	signalProjectCreated          = "PROJECT_CREATED"
	signalProjectDetailsRetrieved = "PROJECT_DETAILS_RETRIEVED"
	signalProjectDeleted          = "PROJECT_DELETED"
	signalFileUploadSuccess       = "FILE_UPLOAD_SUCCESS"
	signalFileContentRetrieved    = "FILE_CONTENT_RETRIEVED"
	signalFileDeleted             = "FILE_DELETED"
	signalProcessingSuccess       = "PROCESSING_SUCCESS"
	signalVectorDBInsertSuccess   = "INSERT_INTO_VECTORDB_SUCCESS"
	signalCollectionRetrieved     = "VECTORDB_COLLECTION_RETRIEVED"
	signalSearchSuccess           = "VECTORDB_SEARCH_SUCCESS"
	signalRAGAnswerSuccess        = "RAG_ANSWER_SUCCESS"
)

// respond writes a success envelope carrying the signal inside data.
func respond(c echo.Context, status int, signal string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["signal"] = signal
	return c.JSON(status, apierror.NewSuccessEnvelope(signal, status, data))
}
