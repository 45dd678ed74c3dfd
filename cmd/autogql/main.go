package main

import (
	"github.com/autogql/autogql/cli"
	"github.com/autogql/autogql/entity"
)

// blogEntities is a small demo domain; embedding programs supply their own
// set the same way.
func blogEntities() entity.Set {
	return entity.Collect(
		entity.New("User",
			entity.ID("id").Primary(),
			entity.String("name"),
			entity.String("email").Optional(),
			entity.String("passwordHash").Sensitive(),
			entity.DateTime("createdAt").Optional(),
		).WithAssociations(
			entity.HasMany("posts", "Post"),
		),
		entity.New("Post",
			entity.ID("id").Primary(),
			entity.String("title"),
			entity.Text("body").Optional(),
			entity.Boolean("published").Optional(),
			entity.DateTime("createdAt").Optional(),
		).WithAssociations(
			entity.BelongsTo("author", "User"),
			entity.HasMany("comments", "Comment"),
			entity.BelongsToMany("tags", "Tag"),
		),
		entity.New("Comment",
			entity.ID("id").Primary(),
			entity.Text("body"),
			entity.DateTime("createdAt").Optional(),
		).WithAssociations(
			entity.BelongsTo("post", "Post"),
		),
		entity.New("Tag",
			entity.ID("id").Primary(),
			entity.String("name"),
		).WithAssociations(
			entity.BelongsToMany("posts", "Post"),
		),
	)
}

func main() {
	cli.Execute(cli.App{
		Name:     "autogql",
		Short:    "autogql derives a GraphQL API from relational entity metadata",
		Entities: blogEntities(),
	})
}
