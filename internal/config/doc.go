// Package config loads the notioncal server configuration from a YAML file.
//
// Values missing from the file keep their defaults. Command-line flags and
// environment variables are applied on top by the cmd package.
//
//	listen: ":3000"
//	timezone: Asia/Seoul
//	notion:
//	  timeout: 30s
//	properties:
//	  date: 날짜
//	cors:
//	  allowed_origins: ["https://widget.example.com"]
//	rate_limit:
//	  requests_per_second: 5
//	  burst: 10
package config
