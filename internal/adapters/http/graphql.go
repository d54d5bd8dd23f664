package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// buildSchema creates the read-only GraphQL view of the route guide. Object
// fields resolve through the domain types' json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Int},
			"longitude": &graphql.Field{Type: graphql.Int},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: pointType},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"point_count":   &graphql.Field{Type: graphql.Int},
			"feature_count": &graphql.Field{Type: graphql.Int},
			"distance":      &graphql.Field{Type: graphql.Int},
			"elapsed_time":  &graphql.Field{Type: graphql.Int},
		},
	})

	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"latitude":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
			"longitude": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"feature": &graphql.Field{
				Type:        featureType,
				Description: "Feature at an exact E7 point; unnamed when nothing is there",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					pt := domain.Point{
						Latitude:  int32(p.Args["latitude"].(int)),
						Longitude: int32(p.Args["longitude"].(int)),
					}
					return deps.Service.GetFeature(p.Context, pt)
				},
			},
			"features": &graphql.Field{
				Type:        graphql.NewList(featureType),
				Description: "Named features inside a rectangle, in catalog order",
				Args: graphql.FieldConfigArgument{
					"lo":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(pointInput)},
					"hi":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(pointInput)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					r := domain.Rectangle{Lo: argPoint(p.Args["lo"]), Hi: argPoint(p.Args["hi"])}
					limit := p.Args["limit"].(int)
					out := []domain.Feature{}
					for f := range deps.Service.Index().Query(r) {
						if len(out) >= limit {
							break
						}
						out = append(out, f)
					}
					return out, nil
				},
			},
			"catalogSize": &graphql.Field{
				Type:        graphql.Int,
				Description: "Number of catalog entries, named or not",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return deps.Service.Index().Len(), nil
				},
			},
			"routeSummary": &graphql.Field{
				Type:        summaryType,
				Description: "Summarise an ordered list of points",
				Args: graphql.FieldConfigArgument{
					"points": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(pointInput)))},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, _ := p.Args["points"].([]any)
					points := make([]domain.Point, 0, len(raw))
					for _, v := range raw {
						points = append(points, argPoint(v))
					}
					return deps.Service.SummarizeRoute(points), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

func argPoint(v any) domain.Point {
	m, _ := v.(map[string]any)
	lat, _ := m["latitude"].(int)
	lon, _ := m["longitude"].(int)
	return domain.Point{Latitude: int32(lat), Longitude: int32(lon)}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		return c.JSON(result)
	}
}
