package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           geminid API
// @version         1.0
// @description     HTTP front-end for a local generation CLI tool.
//
// @contact.name   geminid maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
