// Package notion is a small client for the subset of the Notion REST API that
// notioncal needs: searching databases, querying them, editing their schema,
// and creating, updating and archiving pages.
//
// Every call carries the integration token as a bearer token through an
// oauth2 static token source and the Notion-Version header. Each call is
// traced and recorded in the notion_api_* metrics.
package notion
