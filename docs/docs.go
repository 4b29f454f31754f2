// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Generate a JWT bearer token",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.TokenRequest"}}],
                "responses": {"200": {"description": "Token successfully generated"}, "400": {"description": "Invalid request parameters", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}}
            }
        },
        "/calculator": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Calculator"],
                "summary": "Calculate loan terms",
                "parameters": [
                    {"type": "string", "name": "scheme", "in": "query", "required": true},
                    {"type": "string", "name": "principal", "in": "query", "required": true},
                    {"type": "string", "name": "rate", "in": "query", "required": true},
                    {"type": "integer", "name": "tenure", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "Computed terms", "schema": {"$ref": "#/definitions/dto.CalculatorResponse"}}, "400": {"description": "Invalid terms", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}}
            }
        },
        "/customers": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "List active customers", "responses": {"200": {"description": "List of customers"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "Register a customer", "responses": {"201": {"description": "Customer successfully created"}, "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}}}
        },
        "/customers/{customerID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "Retrieve customer details", "parameters": [{"type": "integer", "name": "customerID", "in": "path", "required": true}], "responses": {"200": {"description": "Customer details retrieved"}, "404": {"description": "Customer not found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "Deactivate a customer", "parameters": [{"type": "integer", "name": "customerID", "in": "path", "required": true}], "responses": {"204": {"description": "Customer successfully deactivated"}}}
        },
        "/customers/{customerID}/address": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "Update customer address", "parameters": [{"type": "integer", "name": "customerID", "in": "path", "required": true}], "responses": {"204": {"description": "Address successfully updated"}}}
        },
        "/customers/{customerID}/reactivate": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "Reactivate a customer", "parameters": [{"type": "integer", "name": "customerID", "in": "path", "required": true}], "responses": {"204": {"description": "Customer successfully reactivated"}}}
        },
        "/customers/{customerID}/applications": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Customers"], "summary": "List a customer's loan applications", "parameters": [{"type": "integer", "name": "customerID", "in": "path", "required": true}], "responses": {"200": {"description": "Applications, newest first"}}}
        },
        "/policies": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Policies"], "summary": "List interest policies", "responses": {"200": {"description": "Policies by scheme and name"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Policies"], "summary": "Create or replace an interest policy", "responses": {"201": {"description": "Policy saved"}, "400": {"description": "Invalid policy"}, "409": {"description": "Concurrent activation for the same scheme"}}}
        },
        "/policies/{name}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Policies"], "summary": "Get an interest policy", "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}], "responses": {"200": {"description": "Policy"}, "404": {"description": "Policy not found"}}}
        },
        "/policies/{name}/activate": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Policies"], "summary": "Activate an interest policy", "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}], "responses": {"200": {"description": "Activated policy"}, "404": {"description": "Policy not found"}}}
        },
        "/policies/{name}/rate": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Policies"], "summary": "Resolve the rate for an amount", "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}, {"type": "string", "name": "amount", "in": "query", "required": true}, {"type": "string", "name": "scheme", "in": "query"}], "responses": {"200": {"description": "Resolved rate"}, "400": {"description": "Invalid amount or scheme mismatch"}}}
        },
        "/applications": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Applications"], "summary": "Open a loan application", "responses": {"201": {"description": "Application opened"}, "400": {"description": "Invalid application"}}}
        },
        "/applications/{applicationID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Applications"], "summary": "Get a loan application", "parameters": [{"type": "integer", "name": "applicationID", "in": "path", "required": true}], "responses": {"200": {"description": "Application"}, "404": {"description": "Application not found"}}}
        },
        "/applications/{applicationID}/approve": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Applications"], "summary": "Approve a loan application", "parameters": [{"type": "integer", "name": "applicationID", "in": "path", "required": true}], "responses": {"200": {"description": "Application approved"}, "409": {"description": "Application is not open"}}}
        },
        "/applications/{applicationID}/reject": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Applications"], "summary": "Reject a loan application", "parameters": [{"type": "integer", "name": "applicationID", "in": "path", "required": true}], "responses": {"200": {"description": "Application rejected"}, "409": {"description": "Application already decided or disbursed"}}}
        },
        "/applications/{applicationID}/loan": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Applications"], "summary": "Convert an approved application into a draft loan", "parameters": [{"type": "integer", "name": "applicationID", "in": "path", "required": true}], "responses": {"201": {"description": "Draft loan created"}, "409": {"description": "Application not approved or already converted"}}}
        },
        "/loans": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Create a draft loan", "responses": {"201": {"description": "Draft loan created"}, "400": {"description": "Invalid request payload or validation error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}}}
        },
        "/loans/{loanID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Get loan details", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Loan details"}, "404": {"description": "Loan not found"}}}
        },
        "/loans/{loanID}/submit": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Submit a draft loan", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Loan activated"}, "409": {"description": "Loan is not a draft"}}}
        },
        "/loans/{loanID}/payments": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "List settled payments", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Payments in settlement order"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Settle a payment", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"201": {"description": "Payment settled"}, "400": {"description": "Invalid payment"}, "409": {"description": "Loan not payable or payment reference already settled"}}}
        },
        "/loans/{loanID}/payment-suggestion": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Suggest the next payment", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Suggested payment"}}}
        },
        "/loans/{loanID}/refresh": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Refresh loan status", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Current status"}}}
        },
        "/loans/{loanID}/overdue": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Loans"], "summary": "Get overdue exposure", "parameters": [{"type": "integer", "name": "loanID", "in": "path", "required": true}], "responses": {"200": {"description": "Overdue exposure"}}}
        },
        "/reports/portfolio": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reports"],
                "summary": "Portfolio report",
                "parameters": [
                    {"type": "integer", "name": "customerId", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "scheme", "in": "query"},
                    {"type": "string", "name": "fromDate", "in": "query"},
                    {"type": "string", "name": "toDate", "in": "query"}
                ],
                "responses": {"200": {"description": "Portfolio"}, "400": {"description": "Invalid filter"}}
            }
        }
    },
    "definitions": {
        "dto.TokenRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}}
        },
        "dto.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "field": {"type": "string"}}
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/dto.ErrorDetail"}}
        },
        "dto.CalculatorResponse": {
            "type": "object",
            "properties": {
                "scheme": {"type": "string"},
                "principal": {"type": "string"},
                "ratePerPeriod": {"type": "string"},
                "tenurePeriods": {"type": "integer"},
                "installment": {"type": "string"},
                "totalInterest": {"type": "string"},
                "totalAmount": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Loan Servicing API",
	Description:      "Loan amortization, payment allocation and servicing API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
