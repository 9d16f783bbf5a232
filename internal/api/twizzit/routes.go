package twizzit

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type credentialList struct {
	Credentials []CredentialResponse `json:"credentials"`
}

type syncLogList struct {
	SyncLogs []SyncLogResponse `json:"syncLogs"`
}

type mappingList struct {
	Mappings []MappingResponse `json:"mappings"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/twizzit/credentials", Summary: "List Twizzit credentials", Access: apidoc.Admin,
			Handler: HandleListCredentials, Response: credentialList{}},
		{Method: http.MethodPost, Path: "/api/twizzit/credentials", Summary: "Store Twizzit credential", Access: apidoc.Admin,
			Handler: HandleCreateCredential, Request: credentialRequest{}, Response: CredentialResponse{}, Status: http.StatusCreated},
		{Method: http.MethodDelete, Path: "/api/twizzit/credentials/{id}", Summary: "Delete Twizzit credential", Access: apidoc.Admin,
			Handler: HandleDeleteCredential, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/twizzit/credentials/{id}/verify", Summary: "Verify Twizzit login", Access: apidoc.Admin,
			Handler: HandleVerifyCredential, Response: CredentialResponse{}},
		{Method: http.MethodPost, Path: "/api/twizzit/sync/{credential_id}", Summary: "Run Twizzit sync", Access: apidoc.Admin,
			Handler: HandleSync, Request: syncRequest{}, Response: SyncLogResponse{}},
		{Method: http.MethodGet, Path: "/api/twizzit/sync-logs", Summary: "List sync runs", Access: apidoc.Admin,
			Handler: HandleListSyncLogs, Response: syncLogList{}},
		{Method: http.MethodGet, Path: "/api/twizzit/mappings", Summary: "List Twizzit id mappings", Access: apidoc.Admin,
			Handler: HandleListMappings, Response: mappingList{}},
	}
}
