// Package docs holds the OpenAPI document served at /swagger. It follows the
// swag annotations on the handlers and is checked against them by docs_test.go.
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
        "/balances": {
            "get": {
                "description": "Net balance against every counterpart, per currency. Positive amounts are owed to you.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "balances"
                ],
                "summary": "Get my balances",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Only this group's history",
                        "name": "group_id",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Earliest event date (YYYY-MM-DD)",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Latest event date (YYYY-MM-DD)",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "ISO 4217 currency code",
                        "name": "currency",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/ledger.BalanceResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/balances/{userId}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "balances"
                ],
                "summary": "Get my balance with a user",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Counterpart user ID",
                        "name": "userId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/ledger.BalanceResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/dashboard": {
            "get": {
                "description": "Per-currency totals owed and owing, the largest counterparts, and per-group positions",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "balances"
                ],
                "summary": "Get my dashboard",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/ledger.DashboardResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            }
        },
        "/expenses": {
            "get": {
                "description": "Paginated expenses, newest first. Replaced and deleted revisions are hidden unless include_history is set.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "List expenses",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Only expenses this user paid for or shares in",
                        "name": "user_id",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Only expenses in this group",
                        "name": "group_id",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Earliest expense date (YYYY-MM-DD)",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Latest expense date (YYYY-MM-DD)",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "ISO 4217 currency code",
                        "name": "currency",
                        "in": "query"
                    },
                    {
                        "type": "boolean",
                        "description": "Include replaced and deleted revisions",
                        "name": "include_history",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "default": 1,
                        "description": "Page number",
                        "name": "page",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "default": 20,
                        "description": "Items per page",
                        "name": "per_page",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/expense.ExpenseResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            },
            "post": {
                "description": "Create an expense; splits are resolved with the equal, exact, percentage, shares, adjustment, reimbursement or itemized strategy",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "Create a new expense",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Expense creation request",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/expense.CreateExpenseRequest"
                        },
                        "required": true
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/expense.ExpenseResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/expenses/preview": {
            "post": {
                "description": "Validate an expense and return the splits it would produce, without storing anything",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "Preview an expense split",
                "parameters": [
                    {
                        "description": "Expense to preview",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/expense.CreateExpenseRequest"
                        },
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/expense.SplitResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/expenses/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "Get expense by ID",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Expense ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/expense.ExpenseResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            },
            "put": {
                "description": "Append a new revision that replaces the given one. Only the latest revision can be edited.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "Edit an expense",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Expense ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Replacement expense",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/expense.CreateExpenseRequest"
                        },
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/expense.ExpenseResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            },
            "delete": {
                "description": "Append a void revision; the expense stops counting towards balances",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "expenses"
                ],
                "summary": "Delete an expense",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Expense ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Optional reason",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/expense.VoidExpenseRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/expense.ExpenseResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/groups/{id}/balances": {
            "get": {
                "description": "Every member's net position in the group; with X-User-ID, also your balances inside it",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Get group balances",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Group ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/ledger.GroupBalancesResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            }
        },
        "/groups/{id}/settle": {
            "post": {
                "description": "Record the current settlement plan as payments",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Settle a group",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Group ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Acting group member",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Settlement options",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/settlement.ApplyRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/payment.PaymentResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/groups/{id}/settlement-plan": {
            "get": {
                "description": "The fewest greedy transfers that bring every member of the group to zero, per currency",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Propose a settlement plan",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Group ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Only plan this currency",
                        "name": "currency",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/settlement.PlanResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/payments": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "payments"
                ],
                "summary": "List payments",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Only payments this user sent or received",
                        "name": "user_id",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Only payments in this group",
                        "name": "group_id",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Earliest payment date (YYYY-MM-DD)",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Latest payment date (YYYY-MM-DD)",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "ISO 4217 currency code",
                        "name": "currency",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "default": 1,
                        "description": "Page number",
                        "name": "page",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "default": 20,
                        "description": "Items per page",
                        "name": "per_page",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/payment.PaymentResponse"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            },
            "post": {
                "description": "Record money paid from one user to another; it reduces what the payer owes the payee",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "payments"
                ],
                "summary": "Record a payment",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Viewpoint user",
                        "name": "X-User-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Payment",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/payment.CreatePaymentRequest"
                        },
                        "required": true
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/payment.PaymentResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/payments/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "payments"
                ],
                "summary": "Get payment by ID",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Payment ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/payment.PaymentResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/response.APIResponse"
                        }
                    }
                }
            }
        },
        "/reference/categories": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reference"
                ],
                "summary": "List expense categories",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/catalog.Category"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            }
        },
        "/reference/currencies": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reference"
                ],
                "summary": "List currencies",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/response.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/catalog.Currency"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "catalog.Category": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "icon": {
                    "type": "string"
                }
            }
        },
        "catalog.Currency": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "symbol": {
                    "type": "string"
                },
                "decimals": {
                    "type": "integer"
                }
            }
        },
        "expense.CreateExpenseRequest": {
            "type": "object",
            "properties": {
                "group_id": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                },
                "amount": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "paid_by": {
                    "type": "integer"
                },
                "split_type": {
                    "type": "string"
                },
                "participants": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/expense.ParticipantRequest"
                    }
                },
                "reimbursee_id": {
                    "type": "integer"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/expense.ItemRequest"
                    }
                },
                "category_id": {
                    "type": "integer"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "expense.ExpenseResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "ref": {
                    "type": "string"
                },
                "group_id": {
                    "type": "integer"
                },
                "paid_by": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                },
                "total": {
                    "$ref": "#/definitions/money.View"
                },
                "date": {
                    "type": "string"
                },
                "split_type": {
                    "type": "string"
                },
                "category_id": {
                    "type": "integer"
                },
                "notes": {
                    "type": "string"
                },
                "replaces_id": {
                    "type": "integer"
                },
                "void": {
                    "type": "boolean"
                },
                "content_hash": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "splits": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/expense.SplitResponse"
                    }
                }
            }
        },
        "expense.ItemRequest": {
            "type": "object",
            "properties": {
                "description": {
                    "type": "string"
                },
                "amount": {
                    "type": "string"
                },
                "user_ids": {
                    "type": "array",
                    "items": {
                        "type": "integer"
                    }
                }
            }
        },
        "expense.ParticipantRequest": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "integer"
                },
                "amount": {
                    "type": "string"
                },
                "percentage": {
                    "type": "string"
                },
                "shares": {
                    "type": "integer"
                },
                "adjustment": {
                    "type": "string"
                }
            }
        },
        "expense.SplitResponse": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "integer"
                },
                "amount": {
                    "$ref": "#/definitions/money.View"
                },
                "percentage": {
                    "type": "string"
                },
                "shares": {
                    "type": "integer"
                }
            }
        },
        "expense.VoidExpenseRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            }
        },
        "ledger.BalanceResponse": {
            "type": "object",
            "properties": {
                "counterpart_user_id": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "amount": {
                    "$ref": "#/definitions/money.View"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "ledger.CurrencySummaryResponse": {
            "type": "object",
            "properties": {
                "currency": {
                    "type": "string"
                },
                "owed": {
                    "$ref": "#/definitions/money.View"
                },
                "owe": {
                    "$ref": "#/definitions/money.View"
                },
                "net": {
                    "$ref": "#/definitions/money.View"
                },
                "highest_owed": {
                    "$ref": "#/definitions/ledger.BalanceResponse"
                },
                "highest_owing": {
                    "$ref": "#/definitions/ledger.BalanceResponse"
                }
            }
        },
        "ledger.DashboardResponse": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "integer"
                },
                "currencies": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ledger.CurrencySummaryResponse"
                    }
                },
                "groups": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ledger.GroupBalanceResponse"
                    }
                },
                "highest_groups": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ledger.GroupBalanceResponse"
                    }
                }
            }
        },
        "ledger.GroupBalanceResponse": {
            "type": "object",
            "properties": {
                "group_id": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "amount": {
                    "$ref": "#/definitions/money.View"
                }
            }
        },
        "ledger.GroupBalancesResponse": {
            "type": "object",
            "properties": {
                "group_id": {
                    "type": "integer"
                },
                "members": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ledger.MemberNetResponse"
                    }
                },
                "mine": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ledger.BalanceResponse"
                    }
                }
            }
        },
        "ledger.MemberNetResponse": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "net": {
                    "$ref": "#/definitions/money.View"
                }
            }
        },
        "money.View": {
            "type": "object",
            "properties": {
                "minor": {
                    "type": "integer"
                },
                "value": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                }
            }
        },
        "payment.CreatePaymentRequest": {
            "type": "object",
            "properties": {
                "from_user_id": {
                    "type": "integer"
                },
                "to_user_id": {
                    "type": "integer"
                },
                "amount": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "method": {
                    "type": "string"
                },
                "group_id": {
                    "type": "integer"
                },
                "paid_at": {
                    "type": "string"
                },
                "note": {
                    "type": "string"
                }
            }
        },
        "payment.Method": {
            "type": "string",
            "enum": [
                "cash",
                "bank_transfer",
                "card",
                "mobile_wallet",
                "other"
            ],
            "x-enum-varnames": [
                "MethodCash",
                "MethodBankTransfer",
                "MethodCard",
                "MethodMobileWallet",
                "MethodOther"
            ]
        },
        "payment.PaymentResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "ref": {
                    "type": "string"
                },
                "from_user_id": {
                    "type": "integer"
                },
                "to_user_id": {
                    "type": "integer"
                },
                "amount": {
                    "$ref": "#/definitions/money.View"
                },
                "method": {
                    "$ref": "#/definitions/payment.Method"
                },
                "group_id": {
                    "type": "integer"
                },
                "paid_at": {
                    "type": "string"
                },
                "note": {
                    "type": "string"
                },
                "content_hash": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "response.APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "details": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "response.APIResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "data": {},
                "error": {
                    "$ref": "#/definitions/response.APIError"
                },
                "meta": {
                    "$ref": "#/definitions/response.Meta"
                }
            }
        },
        "response.Meta": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "per_page": {
                    "type": "integer"
                },
                "total": {
                    "type": "integer"
                },
                "total_pages": {
                    "type": "integer"
                }
            }
        },
        "settlement.ApplyRequest": {
            "type": "object",
            "properties": {
                "currency": {
                    "type": "string"
                },
                "method": {
                    "type": "string"
                },
                "plan_hash": {
                    "type": "string"
                },
                "note": {
                    "type": "string"
                }
            }
        },
        "settlement.PlanResponse": {
            "type": "object",
            "properties": {
                "group_id": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "transfers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/settlement.TransferResponse"
                    }
                },
                "plan_hash": {
                    "type": "string"
                },
                "settled": {
                    "type": "boolean"
                }
            }
        },
        "settlement.TransferResponse": {
            "type": "object",
            "properties": {
                "from_user_id": {
                    "type": "integer"
                },
                "to_user_id": {
                    "type": "integer"
                },
                "amount": {
                    "$ref": "#/definitions/money.View"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Split Ledger API",
	Description:      "Shared-expense ledger: splits, payments, per-currency balances and settlement plans.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
