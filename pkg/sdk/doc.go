// Package mantadmin is an in-process Go client for a Manticore Search
// instance: abstract list and CRUD operations, raw SQL, hybrid search with
// facets, vector column settings and recommendations.
//
// # Records and SQL
//
//	client, _ := mantadmin.New(ctx,
//	    mantadmin.WithManticore("http://localhost:9308"),
//	    mantadmin.WithEmbeddingService("http://localhost:8000"),
//	)
//	defer client.Close()
//
//	page, _ := client.Records("products").List(ctx, mantadmin.ListOptions{
//	    Page: 1, PageSize: 20,
//	    Filters: []mantadmin.Filter{{Field: "price", Operator: mantadmin.OpLte, Value: 100}},
//	})
//	_, _ = client.SQL(ctx, "SHOW TABLES", false)
//
// # Hybrid search
//
//	res, _ := client.Search("products").
//	    Query("red shoes").
//	    Vector("embedding").K(20).
//	    Where("brand", mantadmin.OpIn, []any{"acme", "globex"}).
//	    Facet("brand", 10).
//	    Do(ctx)
//
// # Recommendations
//
//	recs, _ := client.Recommend(ctx, mantadmin.RecommendRequest{
//	    Table: "products", InputType: mantadmin.InputID, InputValue: 42,
//	})
package mantadmin
