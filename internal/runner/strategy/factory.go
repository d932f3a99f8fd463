package strategy

func GetRunner(loaderType string) ServerRunner {
	switch loaderType {
	case "forge", "neoforge":
		return &ForgeRunner{}
	default:
		return &VanillaRunner{}
	}
}
