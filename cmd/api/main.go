// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

func main() {
	inventoryServiceURL, _ := url.Parse(getEnv("INVENTORY_SERVICE_URL", "http://localhost:8081"))
	ordersServiceURL, _ := url.Parse(getEnv("ORDERS_SERVICE_URL", "http://localhost:8082"))

	inventoryProxy := httputil.NewSingleHostReverseProxy(inventoryServiceURL)
	ordersProxy := httputil.NewSingleHostReverseProxy(ordersServiceURL)

	http.Handle("/api/v1/inventory/", http.StripPrefix("/api/v1/inventory", inventoryProxy))
	http.Handle("/api/v1/orders/", http.StripPrefix("/api/v1/orders", ordersProxy))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
